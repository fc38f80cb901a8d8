package textnorm

import (
	"regexp"
	"sort"
	"strings"
)

// imprintToParent resolves a cleaned imprint or magazine label to its parent
// publisher. Keys are lowercase with spacing and punctuation stripped, i.e.
// the output of cleanPublisher.
var imprintToParent = map[string]string{
	// Kodansha
	"shonenmagazine":   "kodansha",
	"shonenmagazinekc": "kodansha",
	"magazinekc":       "kodansha",
	"kcdeluxe":         "kodansha",
	"kc":               "kodansha",
	"youngmagazine":    "kodansha",
	"youngmagazinekc":  "kodansha",
	"morning":          "kodansha",
	"morningkc":        "kodansha",
	"afternoon":        "kodansha",
	"afternoonkc":      "kodansha",
	"eveningkc":        "kodansha",
	"kodansha":         "kodansha",
	"kodanshacomics":   "kodansha",
	"kcmanga":          "kodansha",
	"sirius":           "kodansha",
	"siriuskc":         "kodansha",
	"rivierekc":        "kodansha",
	"palcykc":          "kodansha",
	"dayscomics":       "kodansha",
	// Kadokawa
	"kadokawa":             "kadokawa",
	"kadokawacomics":       "kadokawa",
	"kadokawacomicsace":    "kadokawa",
	"kadokawasneakerbunko": "kadokawa",
	"dengeki":              "kadokawa",
	"dengekicomics":        "kadokawa",
	"dengekibunko":         "kadokawa",
	"dengekidaioh":         "kadokawa",
	"asciimediaworks":      "kadokawa",
	"mediaworks":           "kadokawa",
	"enterbrain":           "kadokawa",
	"mfbunko":              "kadokawa",
	"mfbunkoj":             "kadokawa",
	"mfc":                  "kadokawa",
	"dragoncomicsage":      "kadokawa",
	"dragoncomics":         "kadokawa",
	"compace":              "kadokawa",
	"comptiq":              "kadokawa",
	"bcomicskadoboku":      "kadokawa",
	"flos":                 "kadokawa",
	"floscomics":           "kadokawa",
	// Harta is a Kadokawa label via Enterbrain
	"harta":       "kadokawa",
	"hartacomics": "kadokawa",
	"hue":         "kadokawa",
	// Shueisha
	"shueisha":        "shueisha",
	"jumpcomics":      "shueisha",
	"youngjump":       "shueisha",
	"youngjumpcomics": "shueisha",
	"grandjump":       "shueisha",
	"ultrajump":       "shueisha",
	"margaretcomics":  "shueisha",
	"ribon":           "shueisha",
	"ribbon":          "shueisha",
	"dashxbunko":      "shueisha",
	// Shogakukan
	"shogakukan":      "shogakukan",
	"sunday":          "shogakukan",
	"sundaycomics":    "shogakukan",
	"bigcomics":       "shogakukan",
	"bigcomic":        "shogakukan",
	"bigcomicsspirits": "shogakukan",
	"flowercomics":    "shogakukan",
	"gangan":          "shogakukan",
	"uracomics":       "shogakukan",
	// Square Enix
	"squareenix":         "squareenix",
	"gangancomics":       "squareenix",
	"gangancomicsonline": "squareenix",
	"gangancomicsjoker":  "squareenix",
	"gfantasy":           "squareenix",
	"younggangan":        "squareenix",
	"biggangancomics":    "squareenix",
	// Hakusensha
	"hakusensha":        "hakusensha",
	"younganimal":       "hakusensha",
	"younganimalcomics": "hakusensha",
	"hanatoname":        "hakusensha",
	"hanatoamecomics":   "hakusensha",
	"lala":              "hakusensha",
	"melody":            "hakusensha",
	"jets":              "hakusensha",
	"jetscomics":        "hakusensha",
	// Akita Shoten
	"akitashoten":    "akitashoten",
	"champion":       "akitashoten",
	"championcomics": "akitashoten",
	"shonenchampion": "akitashoten",
	// Others
	"ichijinsha":         "ichijinsha",
	"gene":               "ichijinsha",
	"rexcomics":          "ichijinsha",
	"futabasha":          "futabasha",
	"action":             "futabasha",
	"actioncomics":       "futabasha",
	"houbunsha":          "houbunsha",
	"bunch":              "coamix",
	"bunchcomics":        "coamix",
	"coamix":             "coamix",
	"overlap":            "overlap",
	"overlapbunko":       "overlap",
	"hobbyjapan":         "hobbyjapan",
	"hjbunko":            "hobbyjapan",
	"sbcreative":         "sbcreative",
	"gabunko":            "sbcreative",
	"heroes":             "heroes",
	"heroescomics":       "heroes",
	"flexcomics":         "flexcomics",
	"maggarden":          "maggarden",
	"bladecomics":        "maggarden",
	"leed":               "leed",
	"ran":                "leed",
	"northstarspictures": "northstarspictures",
	"shinchosha":         "shinchosha",
	"bungeishunju":       "bungeishunju",
	"kobunsha":           "kobunsha",
	"gentosha":           "gentosha",
	"shonengazosha":      "shonengazosha",
	"pixiv":              "pixiv",
}

// publisherRomaji maps native publisher and label names to display romaji.
var publisherRomaji = map[string]string{
	"KADOKAWA":       "Kadokawa",
	"角川書店":           "Kadokawa",
	"カドカワ":           "Kadokawa",
	"角川":             "Kadokawa",
	"講談社":            "Kodansha",
	"小学館":            "Shogakukan",
	"集英社":            "Shueisha",
	"スクウェア・エニックス":    "Square Enix",
	"スクエニ":           "Square Enix",
	"白泉社":            "Hakusensha",
	"秋田書店":           "Akita Shoten",
	"双葉社":            "Futabasha",
	"芳文社":            "Houbunsha",
	"一迅社":            "Ichijinsha",
	"アスキー・メディアワークス":  "ASCII Media Works",
	"メディアワークス":       "Media Works",
	"電撃":             "Dengeki",
	"マッグガーデン":        "Mag Garden",
	"エンターブレイン":       "Enterbrain",
	"ホビージャパン":        "Hobby Japan",
	"オーバーラップ":        "Overlap",
	"アース・スター":        "Earth Star",
	"SBクリエイティブ":      "SB Creative",
	"ソフトバンク":         "SoftBank",
	"新潮社":            "Shinchosha",
	"文藝春秋":           "Bungeishunju",
	"光文社":            "Kobunsha",
	"幻冬舎":            "Gentosha",
	"リイド社":           "Leed",
	"少年画報社":          "Shonen Gahosha",
	"コアミックス":         "Coamix",
	"ノース・スターズ・ピクチャーズ": "North Stars Pictures",
	"角川コミックス":        "Kadokawa Comics",
	"角川スニーカー文庫":      "Kadokawa Sneaker Bunko",
	"電撃コミックス":        "Dengeki Comics",
	"電撃文庫":           "Dengeki Bunko",
	"少年マガジン":         "Shonen Magazine",
	"マガジンKC":         "Magazine KC",
	"ヤングマガジン":        "Young Magazine",
	"ジャンプコミックス":      "Jump Comics",
	"サンデー":           "Sunday",
	"ガンガン":           "Gangan",
	"ビッグコミックス":       "Big Comics",
	"ビッグコミック":        "Big Comics",
	"モーニング":          "Morning",
	"アフタヌーン":         "Afternoon",
	"ハルタ":            "Harta",
	"ハルタコミックス":       "Harta Comics",
	"MFC":            "MFC",
	"MF文庫":           "MF Bunko",
	"フレックスコミックス":     "Flex Comics",
	"ヒーローズ":          "Heroes",
	"バンチ":            "Bunch",
	"BUNCH":          "Bunch",
	"アクション":          "Action",
	"ヤングアニマル":        "Young Animal",
	"チャンピオン":         "Champion",
	"ジーン":            "Gene",
	"ピクシブ":           "Pixiv",
	"フロース":           "Flos",
	"ヒュー":            "Hue",
	"乱":              "Ran",
	"KC":             "KC",
	"KCデラックス":        "KC Deluxe",
}

// romajiKeysByLength caches the native names sorted longest-first for the
// substring pass, so 角川コミックス is tried before 角川.
var romajiKeysByLength = func() []string {
	keys := make([]string, 0, len(publisherRomaji))
	for k := range publisherRomaji {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

var publisherPunct = strings.NewReplacer(" ", "", "　", "", "・", "", "-", "", "−", "")

func cleanPublisher(name string) string {
	return strings.ToLower(publisherPunct.Replace(name))
}

// CanonicalPublisher normalizes a raw publisher string to a canonical key:
// spacing and punctuation stripped, lowercased, then resolved through the
// imprint table so "少年マガジンKC" and "Kodansha" compare equal.
func CanonicalPublisher(name string) string {
	if name == "" {
		return ""
	}
	cleaned := cleanPublisher(name)
	if parent, ok := imprintToParent[cleaned]; ok {
		return parent
	}
	return cleaned
}

// PublishersMatch reports whether a volume's publisher is compatible with
// the series publisher of record. Comparison is substring containment in
// either direction on canonical forms; a missing value on either side means
// no filter applies.
func PublishersMatch(volumePublisher, recordPublisher string) bool {
	if volumePublisher == "" || recordPublisher == "" {
		return true
	}
	a := CanonicalPublisher(volumePublisher)
	b := CanonicalPublisher(recordPublisher)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

var latinOnly = regexp.MustCompile(`^[A-Za-z\s\-\.]+$`)

// PublisherDisplay converts a native publisher name to its romaji display
// form. Exact match first, then longest-substring match; names already in
// Latin script pass through unchanged.
func PublisherDisplay(name string) string {
	if name == "" {
		return ""
	}
	if romaji, ok := publisherRomaji[name]; ok {
		return romaji
	}
	for _, key := range romajiKeysByLength {
		if strings.Contains(name, key) {
			return publisherRomaji[key]
		}
	}
	if latinOnly.MatchString(name) {
		return name
	}
	return name
}

var (
	reParenGroups   = regexp.MustCompile(`\(([^()]+)\)`)
	reParenGroupsJP = regexp.MustCompile(`（([^（）]+)）`)
	reAllDigits     = regexp.MustCompile(`^[0-9]+$`)
	reVolumeSet     = regexp.MustCompile(`^第[0-9]+集$`)
)

// PublisherFromTitle extracts the publisher from a listing title of the
// typical "タイトル (3) (エディター)" shape: the last parenthesized group
// that is not a tome number or volume marker.
func PublisherFromTitle(title string) string {
	if title == "" {
		return ""
	}
	matches := reParenGroups.FindAllStringSubmatch(title, -1)
	if matches == nil {
		matches = reParenGroupsJP.FindAllStringSubmatch(title, -1)
	}
	for i := len(matches) - 1; i >= 0; i-- {
		group := matches[i][1]
		if reAllDigits.MatchString(group) {
			continue
		}
		switch group {
		case "完", "上", "下", "前編", "後編":
			continue
		}
		if reVolumeSet.MatchString(group) {
			continue
		}
		return group
	}
	return ""
}
