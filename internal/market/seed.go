package market

const seedUniverseSize = 200

// seedSymbols is the base roster the universe is built from. When the
// roster runs short of seedUniverseSize the remaining slots are filled
// with numbered variants so the universe always starts at full size.
var seedSymbols = [][2]string{
	{"RELI", "Reliance Industries"},
	{"TCS", "Tata Consultancy Services"},
	{"HDFCB", "HDFC Bank"},
	{"INFY", "Infosys"},
	{"ICICI", "ICICI Bank"},
	{"HUL", "Hindustan Unilever"},
	{"SBIN", "State Bank of India"},
	{"BHARTI", "Bharti Airtel"},
	{"ITC", "ITC Limited"},
	{"KOTAK", "Kotak Mahindra Bank"},
	{"LT", "Larsen & Toubro"},
	{"AXIS", "Axis Bank"},
	{"ASIAN", "Asian Paints"},
	{"MARUTI", "Maruti Suzuki"},
	{"TITAN", "Titan Company"},
	{"BAJFIN", "Bajaj Finance"},
	{"WIPRO", "Wipro"},
	{"HCLT", "HCL Technologies"},
	{"SUNPH", "Sun Pharmaceutical"},
	{"ULTRA", "UltraTech Cement"},
	{"NESTLE", "Nestle India"},
	{"TATAMT", "Tata Motors"},
	{"TATAST", "Tata Steel"},
	{"POWERG", "Power Grid"},
	{"NTPC", "NTPC Limited"},
	{"TECHM", "Tech Mahindra"},
	{"ONGC", "Oil & Natural Gas"},
	{"JSWST", "JSW Steel"},
	{"GRASIM", "Grasim Industries"},
	{"ADANIE", "Adani Enterprises"},
	{"ADANIP", "Adani Ports"},
	{"COALIN", "Coal India"},
	{"HINDAL", "Hindalco Industries"},
	{"CIPLA", "Cipla"},
	{"DRREDDY", "Dr Reddys Laboratories"},
	{"EICHER", "Eicher Motors"},
	{"BRITAN", "Britannia Industries"},
	{"DIVIS", "Divis Laboratories"},
	{"APOLLO", "Apollo Hospitals"},
	{"BAJAJA", "Bajaj Auto"},
	{"HEROMO", "Hero MotoCorp"},
	{"SBILIFE", "SBI Life Insurance"},
	{"HDFCLI", "HDFC Life Insurance"},
	{"INDUSB", "IndusInd Bank"},
	{"TATACO", "Tata Consumer Products"},
	{"BPCL", "Bharat Petroleum"},
	{"UPL", "UPL Limited"},
	{"SHRIRAM", "Shriram Finance"},
	{"LTIM", "LTIMindtree"},
	{"BAJAJF", "Bajaj Finserv"},
	{"ZOMATO", "Zomato"},
	{"PAYTM", "One97 Communications"},
	{"NYKAA", "FSN E-Commerce"},
	{"DMART", "Avenue Supermarts"},
	{"PIDILIT", "Pidilite Industries"},
	{"SIEMENS", "Siemens India"},
	{"ABB", "ABB India"},
	{"HAVELLS", "Havells India"},
	{"DABUR", "Dabur India"},
	{"MARICO", "Marico"},
	{"GODREJ", "Godrej Consumer"},
	{"COLPAL", "Colgate-Palmolive India"},
	{"BERGER", "Berger Paints"},
	{"AMBUJA", "Ambuja Cements"},
	{"ACC", "ACC Limited"},
	{"SHREE", "Shree Cement"},
	{"TORRENT", "Torrent Pharmaceuticals"},
	{"LUPIN", "Lupin"},
	{"AUROBIN", "Aurobindo Pharma"},
	{"BIOCON", "Biocon"},
	{"ALKEM", "Alkem Laboratories"},
	{"MAXHEA", "Max Healthcare"},
	{"FORTIS", "Fortis Healthcare"},
	{"INDIGO", "InterGlobe Aviation"},
	{"IRCTC", "IRCTC"},
	{"CONCOR", "Container Corporation"},
	{"GAIL", "GAIL India"},
	{"IOC", "Indian Oil"},
	{"HINDPE", "Hindustan Petroleum"},
	{"VEDL", "Vedanta"},
	{"NMDC", "NMDC Limited"},
	{"SAIL", "Steel Authority of India"},
	{"NATIONAL", "National Aluminium"},
	{"BANKBAR", "Bank of Baroda"},
	{"PNB", "Punjab National Bank"},
	{"CANBK", "Canara Bank"},
	{"UNIONB", "Union Bank of India"},
	{"IDFCFB", "IDFC First Bank"},
	{"FEDERAL", "Federal Bank"},
	{"BANDHAN", "Bandhan Bank"},
	{"AUBANK", "AU Small Finance Bank"},
	{"MUTHOOT", "Muthoot Finance"},
	{"CHOLAFIN", "Cholamandalam Finance"},
	{"LICHF", "LIC Housing Finance"},
	{"RECLTD", "REC Limited"},
	{"PFC", "Power Finance Corporation"},
	{"IRFC", "Indian Railway Finance"},
	{"POLYCAB", "Polycab India"},
	{"DIXON", "Dixon Technologies"},
	{"VOLTAS", "Voltas"},
	{"BLUESTA", "Blue Star"},
	{"CROMPTON", "Crompton Greaves"},
	{"WHIRLPO", "Whirlpool of India"},
	{"PAGEIND", "Page Industries"},
	{"TRENT", "Trent"},
	{"ABFRL", "Aditya Birla Fashion"},
	{"JUBLFOOD", "Jubilant FoodWorks"},
	{"DEVYANI", "Devyani International"},
	{"VARUN", "Varun Beverages"},
	{"TATAPOW", "Tata Power"},
	{"ADANIGR", "Adani Green Energy"},
	{"ADANITR", "Adani Transmission"},
	{"JSWEN", "JSW Energy"},
	{"TORRPOW", "Torrent Power"},
	{"SUZLON", "Suzlon Energy"},
	{"BHEL", "BHEL"},
	{"BEL", "Bharat Electronics"},
	{"HAL", "Hindustan Aeronautics"},
	{"MAZDOCK", "Mazagon Dock"},
	{"COCHIN", "Cochin Shipyard"},
	{"RVNL", "Rail Vikas Nigam"},
	{"IRCON", "IRCON International"},
	{"NBCC", "NBCC India"},
	{"GMRINF", "GMR Airports"},
	{"ASHOKLE", "Ashok Leyland"},
	{"TVSMOT", "TVS Motor"},
	{"ESCORTS", "Escorts Kubota"},
	{"MRF", "MRF Limited"},
	{"APOLLOT", "Apollo Tyres"},
	{"BALKRIS", "Balkrishna Industries"},
	{"MOTHERSO", "Samvardhana Motherson"},
	{"BOSCHLT", "Bosch India"},
	{"EXIDEIN", "Exide Industries"},
	{"AMARA", "Amara Raja Energy"},
	{"PERSIST", "Persistent Systems"},
	{"COFORGE", "Coforge"},
	{"MPHASIS", "Mphasis"},
	{"LTTS", "L&T Technology Services"},
	{"TATAELX", "Tata Elxsi"},
	{"KPITTECH", "KPIT Technologies"},
	{"ZENSAR", "Zensar Technologies"},
	{"CYIENT", "Cyient"},
	{"BSOFT", "Birlasoft"},
	{"HAPPSTMN", "Happiest Minds"},
	{"ROUTE", "Route Mobile"},
	{"TANLA", "Tanla Platforms"},
	{"AFFLE", "Affle India"},
	{"INDIAMAR", "IndiaMART"},
	{"JUSTDIAL", "Just Dial"},
	{"POLICYBZ", "PB Fintech"},
	{"CDSL", "Central Depository Services"},
	{"BSE", "BSE Limited"},
	{"MCX", "Multi Commodity Exchange"},
	{"ANGELONE", "Angel One"},
	{"IEX", "Indian Energy Exchange"},
	{"CAMS", "CAMS"},
	{"KFINTECH", "KFin Technologies"},
	{"UTIAMC", "UTI Asset Management"},
	{"HDFCAMC", "HDFC AMC"},
	{"NIPPON", "Nippon Life AMC"},
	{"ICICIGI", "ICICI Lombard"},
	{"ICICIPR", "ICICI Prudential Life"},
	{"STARHEA", "Star Health Insurance"},
	{"GICRE", "General Insurance Corp"},
	{"NEWINDIA", "New India Assurance"},
	{"LICI", "Life Insurance Corporation"},
	{"PGHH", "P&G Hygiene"},
	{"GILLETTE", "Gillette India"},
	{"EMAMI", "Emami"},
	{"BAJAJCON", "Bajaj Consumer Care"},
	{"VBL", "Vadilal Industries"},
	{"HATSUN", "Hatsun Agro"},
	{"HERITAGE", "Heritage Foods"},
	{"KRBL", "KRBL Limited"},
	{"LTFOODS", "LT Foods"},
	{"AVANTI", "Avanti Feeds"},
	{"VENKEYS", "Venkys India"},
	{"UBL", "United Breweries"},
	{"UNITDSPR", "United Spirits"},
	{"RADICO", "Radico Khaitan"},
	{"GLOBUS", "Globus Spirits"},
	{"DELTA", "Delta Corp"},
	{"PVRINOX", "PVR INOX"},
	{"SAREGAMA", "Saregama India"},
	{"TIPS", "Tips Industries"},
	{"NAZARA", "Nazara Technologies"},
	{"ONMOBILE", "OnMobile Global"},
	{"RAILTEL", "RailTel Corporation"},
	{"ITI", "ITI Limited"},
	{"TEJAS", "Tejas Networks"},
	{"HFCL", "HFCL Limited"},
	{"STLTECH", "Sterlite Technologies"},
	{"OPTIEMUS", "Optiemus Infracom"},
	{"KAYNES", "Kaynes Technology"},
	{"SYRMA", "Syrma SGS Technology"},
	{"AMBER", "Amber Enterprises"},
	{"EPL", "EPL Limited"},
	{"UFLEX", "UFlex"},
}

// seedUniverse populates the stock map with seedUniverseSize entries, each
// priced uniformly in [50, 1050). Must only be called from NewSeeded.
func (s *Simulator) seedUniverse() {
	for i := 0; i < seedUniverseSize; i++ {
		sym, name := seedEntry(i)
		s.stocks[sym] = &stockState{
			symbol: sym,
			name:   name,
			price:  minBasePrice + s.rand.Float64()*basePriceSpan,
		}
	}
}

func seedEntry(i int) (string, string) {
	base := seedSymbols[i%len(seedSymbols)]
	if i < len(seedSymbols) {
		return base[0], base[1]
	}
	n := i/len(seedSymbols) + 1
	return base[0] + string(rune('A'+n-1)), base[1]
}
