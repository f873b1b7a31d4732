package vehiclenlp

// makeSynonyms maps abbreviations/nicknames to canonical make names.
// All lowercase; matched with word boundaries, longest alias first.
var makeSynonyms = map[string]string{
	"vw": "volkswagen", "volkswagen": "volkswagen",
	"bmw": "bmw", "mercedes": "mercedes-benz", "benz": "mercedes-benz",
	"toyota": "toyota", "honda": "honda", "nissan": "nissan",
	"ford": "ford", "chevrolet": "chevrolet", "chevy": "chevrolet",
	"hyundai": "hyundai", "kia": "kia", "mazda": "mazda",
	"subaru": "subaru", "jeep": "jeep", "dodge": "dodge",
	"chrysler": "chrysler", "audi": "audi", "lexus": "lexus",
	"acura": "acura", "infiniti": "infiniti", "buick": "buick",
	"cadillac": "cadillac", "lincoln": "lincoln", "volvo": "volvo",
	"mini": "mini", "fiat": "fiat", "alfa": "alfa romeo",
	"porsche": "porsche", "jaguar": "jaguar", "land rover": "land rover",
	"range rover": "land rover", "maserati": "maserati", "ferrari": "ferrari",
	"lamborghini": "lamborghini", "bentley": "bentley", "rolls": "rolls royce",
	"rolls royce": "rolls royce", "aston": "aston martin", "aston martin": "aston martin",
}

// modelToMake maps a model name to its implied make. The implied make is
// used only when no explicit make synonym was found in the text. Matched
// with word boundaries, longest model first, so "grand cherokee" wins over
// "cherokee" and "rs" never fires inside "porsche".
var modelToMake = map[string]string{
	// Toyota
	"camry": "toyota", "corolla": "toyota", "rav4": "toyota", "highlander": "toyota",
	"tacoma": "toyota", "tundra": "toyota", "prius": "toyota", "sienna": "toyota",
	"avalon": "toyota", "yaris": "toyota", "venza": "toyota", "4runner": "toyota",
	"sequoia": "toyota", "land cruiser": "toyota",

	// Honda
	"civic": "honda", "accord": "honda", "cr-v": "honda", "pilot": "honda",
	"odyssey": "honda", "ridgeline": "honda", "fit": "honda", "insight": "honda",
	"passport": "honda", "hr-v": "honda",

	// Nissan
	"altima": "nissan", "sentra": "nissan", "rogue": "nissan", "murano": "nissan",
	"pathfinder": "nissan", "frontier": "nissan", "titan": "nissan", "versa": "nissan",
	"maxima": "nissan", "armada": "nissan",

	// Ford
	"f-150": "ford", "f-250": "ford", "f-350": "ford", "mustang": "ford",
	"escape": "ford", "explorer": "ford", "edge": "ford", "expedition": "ford",
	"ranger": "ford", "bronco": "ford", "maverick": "ford",

	// Chevrolet
	"silverado": "chevrolet", "tahoe": "chevrolet", "suburban": "chevrolet",
	"equinox": "chevrolet", "traverse": "chevrolet", "malibu": "chevrolet",
	"impala": "chevrolet", "camaro": "chevrolet", "corvette": "chevrolet",
	"colorado": "chevrolet", "bolt": "chevrolet",

	// Hyundai
	"tucson": "hyundai", "santa fe": "hyundai", "palisade": "hyundai",
	"elantra": "hyundai", "sonata": "hyundai", "accent": "hyundai",
	"veloster": "hyundai", "kona": "hyundai", "ioniq": "hyundai",

	// Kia
	"sportage": "kia", "sorento": "kia", "telluride": "kia", "forte": "kia",
	"rio": "kia", "soul": "kia", "stinger": "kia", "k5": "kia", "niro": "kia",
	"ev6": "kia",

	// Mazda
	"cx-5": "mazda", "cx-9": "mazda", "mazda3": "mazda", "mazda6": "mazda",
	"mx-5": "mazda", "miata": "mazda", "cx-30": "mazda", "cx-50": "mazda",

	// Subaru
	"outback": "subaru", "forester": "subaru", "crosstrek": "subaru",
	"impreza": "subaru", "legacy": "subaru", "wrx": "subaru", "brz": "subaru",
	"ascent": "subaru",

	// Jeep
	"wrangler": "jeep", "grand cherokee": "jeep", "cherokee": "jeep",
	"compass": "jeep", "renegade": "jeep", "gladiator": "jeep",

	// Dodge
	"challenger": "dodge", "charger": "dodge", "durango": "dodge",
	"journey": "dodge",

	// Chrysler
	"300": "chrysler", "pacifica": "chrysler", "voyager": "chrysler",
	"pt cruiser": "chrysler",

	// Audi
	"a3": "audi", "a4": "audi", "a6": "audi", "a8": "audi", "q3": "audi",
	"q5": "audi", "q7": "audi", "q8": "audi", "tt": "audi", "rs": "audi",
	"s4": "audi", "s6": "audi",

	// BMW
	"3 series": "bmw", "5 series": "bmw", "7 series": "bmw", "x1": "bmw",
	"x3": "bmw", "x5": "bmw", "x7": "bmw", "z4": "bmw", "m3": "bmw",
	"m5": "bmw",

	// Mercedes-Benz
	"c-class": "mercedes-benz", "e-class": "mercedes-benz", "s-class": "mercedes-benz",
	"gla": "mercedes-benz", "glb": "mercedes-benz", "glc": "mercedes-benz",
	"gle": "mercedes-benz", "gls": "mercedes-benz", "a-class": "mercedes-benz",
	"cla": "mercedes-benz", "cls": "mercedes-benz",

	// Lexus
	"nx": "lexus", "rx": "lexus", "gx": "lexus", "lx": "lexus", "ux": "lexus",

	// Acura
	"mdx": "acura", "rdx": "acura", "ilx": "acura", "nsx": "acura",
	"integra": "acura",

	// Infiniti
	"q50": "infiniti", "q60": "infiniti", "qx50": "infiniti", "qx60": "infiniti",
	"qx80": "infiniti",

	// Buick
	"encore": "buick", "enclave": "buick", "envision": "buick", "lacrosse": "buick",

	// Cadillac
	"escalade": "cadillac", "xt5": "cadillac", "xt6": "cadillac",
	"ct4": "cadillac", "ct5": "cadillac",

	// Lincoln
	"navigator": "lincoln", "aviator": "lincoln", "corsair": "lincoln",
	"nautilus": "lincoln",

	// Volvo
	"s60": "volvo", "s90": "volvo", "v60": "volvo", "v90": "volvo",
	"xc40": "volvo", "xc60": "volvo", "xc90": "volvo",

	// Mini
	"cooper": "mini", "countryman": "mini", "clubman": "mini",

	// Fiat
	"500": "fiat", "500l": "fiat", "500x": "fiat",

	// Alfa Romeo
	"giulia": "alfa romeo", "stelvio": "alfa romeo", "tonale": "alfa romeo",

	// Porsche
	"911": "porsche", "cayenne": "porsche", "macan": "porsche", "panamera": "porsche",
	"cayman": "porsche", "boxster": "porsche", "taycan": "porsche",

	// Jaguar
	"xe": "jaguar", "xf": "jaguar", "xj": "jaguar", "f-type": "jaguar",
	"f-pace": "jaguar", "e-pace": "jaguar", "i-pace": "jaguar",

	// Land Rover
	"discovery": "land rover", "defender": "land rover", "range rover sport": "land rover",
	"range rover evoque": "land rover", "range rover velar": "land rover",

	// Maserati
	"ghibli": "maserati", "quattroporte": "maserati", "levante": "maserati",
	"grecale": "maserati",

	// Bentley
	"continental": "bentley", "flying spur": "bentley", "bentayga": "bentley",

	// Rolls Royce
	"phantom": "rolls royce", "ghost": "rolls royce", "wraith": "rolls royce",
	"cullinan": "rolls royce",

	// Aston Martin
	"db11": "aston martin", "dbx": "aston martin", "vantage": "aston martin",
	"dbs": "aston martin",

	// Volkswagen
	"tiguan": "volkswagen", "atlas": "volkswagen", "golf": "volkswagen",
	"jetta": "volkswagen", "passat": "volkswagen", "arteon": "volkswagen",
	"id.4": "volkswagen", "taos": "volkswagen", "touareg": "volkswagen",
}

// bodyTypeSynonyms maps body-type mentions to canonical types. Matched by
// plain substring, longest synonym first — the vocabulary is short and
// disjoint enough that word boundaries are not needed.
var bodyTypeSynonyms = map[string]string{
	"sedan": "sedan", "car": "sedan", "suv": "suv", "truck": "truck",
	"pickup": "truck", "hatchback": "hatchback", "wagon": "wagon",
	"convertible": "convertible", "coupe": "coupe", "minivan": "minivan",
	"van": "minivan", "crossover": "suv", "compact": "sedan",
	"midsize": "sedan", "fullsize": "sedan", "luxury": "sedan",
}

// colorSynonyms maps color mentions to canonical colors, substring matched
// longest first so "dark blue" resolves before "blue".
var colorSynonyms = map[string]string{
	"white": "white", "black": "black", "red": "red", "blue": "blue",
	"silver": "silver", "gray": "gray", "grey": "gray", "green": "green",
	"yellow": "yellow", "orange": "orange", "purple": "purple",
	"brown": "brown", "tan": "tan", "beige": "beige", "gold": "gold",
	"navy": "blue", "dark blue": "blue", "light blue": "blue",
	"dark red": "red", "light red": "red", "dark green": "green",
	"light green": "green", "dark gray": "gray", "light gray": "gray",
}

// featureGroups are ordered pattern groups; each group contributes at most
// one matched token to the feature list.
var featureGroups = []string{
	`\b(3rd row|third row|third-row)\b`,
	`\b(hybrid|electric|ev|phev|plug-in)\b`,
	`\b(awd|4wd|all wheel drive|four wheel drive)\b`,
	`\b(leather|heated seats|ventilated seats|cooled seats)\b`,
	`\b(navigation|nav|gps)\b`,
	`\b(sunroof|moonroof|panoramic)\b`,
	`\b(backup camera|rear camera|360 camera)\b`,
	`\b(blind spot|blind spot monitoring|bsm)\b`,
	`\b(lane departure|lane keeping|lane assist)\b`,
	`\b(adaptive cruise|radar cruise|smart cruise)\b`,
	`\b(apple carplay|android auto|carplay)\b`,
	`\b(bluetooth|bluetooth audio|wireless)\b`,
	`\b(premium audio|bose|harman kardon|jbl)\b`,
	`\b(remote start|push button start|keyless)\b`,
	`\b(automatic|manual|cvt|transmission)\b`,
}

// trimPattern matches common trim levels and powertrains.
const trimPattern = `\b(se|s|ex|lx|sport|touring|premium|luxury|platinum|limited|elite|advance|reserve|signature|grand touring|gt|turbo|hybrid|ev|electric|plug-in|phev)\b`
