package textnorm

import (
	"regexp"
	"strconv"
)

// Tome is the result of extracting a volume number from free text.
// Final marks 完結編 style "concluding volume" titles that carry no number.
type Tome struct {
	Number int
	Final  bool
}

// jpChar matches hiragana, katakana, kanji, the long vowel mark, and
// iteration marks. Used by the permissive digit fallbacks.
const jpChar = `[ぁ-んァ-ヿ一-龯ー々〆]`

var (
	reFormalVolume   = regexp.MustCompile(`第\s*([0-9]+)\s*[巻集]`)
	reSimpleVolume   = regexp.MustCompile(`0*([0-9]+)\s*巻`)
	reParenVolume    = regexp.MustCompile(`[（(]\s*0*([0-9]+)\s*[)）]`)
	reFinalNumber    = regexp.MustCompile(`[\s　]([0-9]{1,2})[（(]完[)）]`)
	reWesternVolume  = regexp.MustCompile(`(?i)vol(?:ume)?\.?\s*0*([0-9]+)`)
	reBeforeParen    = regexp.MustCompile(`\s([0-9]+)\s+[（(]`)
	reAfterDash      = regexp.MustCompile(`[\s　]?[-−]\s*([0-9]{1,2})([\s（(]|$)`)
	reFusedToWord    = regexp.MustCompile(jpChar + `([0-9]{1,2})\s+\S`)
	reBetweenJP      = regexp.MustCompile(jpChar + `\s+([0-9]{1,2})\s+` + jpChar)
	reTrailingNumber = regexp.MustCompile(`[\s　]([0-9]{1,2})\s*$`)
	reDigitRun       = regexp.MustCompile(`[0-9]+`)
)

// romanNumerals is ordered longest-first so XV is tried before X and V.
var romanNumerals = []struct {
	token string
	value int
}{
	{"XV", 15}, {"XIV", 14}, {"XIII", 13}, {"XII", 12}, {"XI", 11},
	{"VIII", 8}, {"VII", 7}, {"IX", 9}, {"X", 10},
	{"IV", 4}, {"VI", 6}, {"V", 5},
	{"III", 3}, {"II", 2}, {"I", 1},
}

// kanjiNumerals is ordered longest-first so 十五 matches before 十 and 五.
var kanjiNumerals = []struct {
	token string
	value int
}{
	{"二十", 20}, {"十九", 19}, {"十八", 18}, {"十七", 17}, {"十六", 16},
	{"十五", 15}, {"十四", 14}, {"十三", 13}, {"十二", 12}, {"十一", 11},
	{"十", 10}, {"九", 9}, {"八", 8}, {"七", 7}, {"六", 6},
	{"五", 5}, {"四", 4}, {"三", 3}, {"二", 2}, {"一", 1},
}

var romanPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(romanNumerals))
	for i, rn := range romanNumerals {
		out[i] = regexp.MustCompile(`\s` + rn.token + `(\s|$|[)）]|巻)`)
	}
	return out
}()

var kanjiPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(kanjiNumerals))
	for i, kn := range kanjiNumerals {
		out[i] = regexp.MustCompile(`[\s　]` + kn.token + `(\s|　|$|[)）(（]|巻)`)
	}
	return out
}()

// specialMarkers covers the two-part and concluding volume conventions.
// Ordered; first match wins.
var specialMarkers = []struct {
	re   *regexp.Regexp
	tome Tome
}{
	{regexp.MustCompile(`[（(]上[)）]`), Tome{Number: 1}},
	{regexp.MustCompile(`[（(]下[)）]`), Tome{Number: 2}},
	{regexp.MustCompile(`上巻`), Tome{Number: 1}},
	{regexp.MustCompile(`下巻`), Tome{Number: 2}},
	{regexp.MustCompile(`前編`), Tome{Number: 1}},
	{regexp.MustCompile(`後編`), Tome{Number: 2}},
	{regexp.MustCompile(`完結編`), Tome{Final: true}},
}

// ExtractTome pulls a volume number out of a listing title. Patterns are
// tried from most to least specific; the first match wins and later, more
// permissive rules are never consulted. The tail rules deliberately bound
// bare digits to two figures and <=50 so prices, years, and catalog codes
// are not mistaken for tome numbers.
func ExtractTome(title string) (Tome, bool) {
	if title == "" {
		return Tome{}, false
	}

	// 1. 第X巻 / 第X集
	if m := reFormalVolume.FindStringSubmatch(title); m != nil {
		return tomeFromDigits(m[1])
	}

	// 2. X巻, except inside boxed set listings where it is the set size
	if !containsBoxedSetMarker(title) {
		if m := reSimpleVolume.FindStringSubmatch(title); m != nil {
			return tomeFromDigits(m[1])
		}
	}

	// 3. (X) / （X）
	if m := reParenVolume.FindStringSubmatch(title); m != nil {
		return tomeFromDigits(m[1])
	}

	// 4. N（完）
	if m := reFinalNumber.FindStringSubmatch(title); m != nil {
		return tomeFromDigits(m[1])
	}

	// 5. Vol.N / Volume N
	if m := reWesternVolume.FindStringSubmatch(title); m != nil {
		return tomeFromDigits(m[1])
	}

	// 6. Roman numerals, word-boundary delimited
	for i, re := range romanPatterns {
		if re.MatchString(title) {
			return Tome{Number: romanNumerals[i].value}, true
		}
	}

	// 7. Kanji numerals
	for i, re := range kanjiPatterns {
		if re.MatchString(title) {
			return Tome{Number: kanjiNumerals[i].value}, true
		}
	}

	// 8. 上/下/前編/後編/完結編
	for _, sm := range specialMarkers {
		if sm.re.MatchString(title) {
			return sm.tome, true
		}
	}

	// 9. Bare digit in front of a parenthesis
	if m := reBeforeParen.FindStringSubmatch(title); m != nil {
		return tomeFromDigits(m[1])
	}

	// 10. Dash followed by a number
	if m := reAfterDash.FindStringSubmatch(title); m != nil {
		return tomeFromDigits(m[1])
	}

	// 11. Digit fused to the end of a Japanese word
	if m := reFusedToWord.FindStringSubmatch(title); m != nil {
		return tomeFromDigits(m[1])
	}

	// 12. Digit sandwiched between Japanese characters
	if m := reBetweenJP.FindStringSubmatch(title); m != nil {
		if n, _ := strconv.Atoi(m[1]); n <= 50 {
			return Tome{Number: n}, true
		}
	}

	// 13. Digit at the very end of the title
	if m := reTrailingNumber.FindStringSubmatch(title); m != nil {
		return tomeFromDigits(m[1])
	}

	// 14. Last resort: the first isolated 1-2 digit number, skipping the
	// first 10 characters where catalog codes and ISBN fragments live.
	// Only that first number decides; if it exceeds 50 the title carries
	// no tome, and later digits are never consulted.
	runes := []rune(title)
	if len(runes) > 10 {
		tail := string(runes[10:])
		for _, run := range reDigitRun.FindAllString(tail, -1) {
			if len(run) > 2 {
				continue
			}
			if n, _ := strconv.Atoi(run); n <= 50 {
				return Tome{Number: n}, true
			}
			break
		}
	}

	return Tome{}, false
}

func tomeFromDigits(digits string) (Tome, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Tome{}, false
	}
	return Tome{Number: n}, true
}

// TomeGaps describes which tome numbers are missing from a contiguous run.
type TomeGaps struct {
	Found    map[int]bool
	Max      int
	Missing  []int
	Complete bool
}

// AnalyzeTomes reports the gaps in the contiguous range [1, max] given the
// tome numbers observed in one scan.
func AnalyzeTomes(numbers []int) TomeGaps {
	found := make(map[int]bool, len(numbers))
	max := 0
	for _, n := range numbers {
		if n <= 0 {
			continue
		}
		found[n] = true
		if n > max {
			max = n
		}
	}
	gaps := TomeGaps{Found: found, Max: max, Complete: true}
	for n := 1; n <= max; n++ {
		if !found[n] {
			gaps.Missing = append(gaps.Missing, n)
			gaps.Complete = false
		}
	}
	return gaps
}
