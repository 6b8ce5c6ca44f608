package dontorrent

import (
	"regexp"
	"strconv"
	"strings"
)

// packKeywords are observed label phrasings that mark a multi-episode
// pack, matched against the lowered label.
var packKeywords = []string{
	" al ",
	" a ",
	"completa",
	"todos",
	"pack",
	"temporada completa",
}

var (
	reLeadingToken = regexp.MustCompile(`^(\d+)x(\d+)`)
	reAnyToken     = regexp.MustCompile(`\d+x\d+`)
	reNumericRange = regexp.MustCompile(`\d+\s*[-–—]\s*\d+`)
)

// episodeClass is the classification of one episode-table row label.
// Packs carry the season when the label names one; single episodes
// carry both season and episode.
type episodeClass struct {
	IsPack  bool
	Season  *int
	Episode *int
}

// classifyEpisodeLabel reads an episode-table row label and decides
// whether it names a single episode or a season pack.
//
// A leading SxE token ("4x01 - ...") fixes the season and episode. The
// row is a pack when the label carries a pack keyword, a second SxE
// token after the first ("4x01 al 4x10"), or a numeric range in the
// remainder ("4x01 - 4x10"); packs keep the season and drop the
// episode. A label with a pack keyword but no token is still a pack,
// with neither field set. Anything else is unclassifiable and the
// second return is false.
func classifyEpisodeLabel(label string) (episodeClass, bool) {
	keyword := containsPackKeyword(strings.ToLower(label))

	m := reLeadingToken.FindStringSubmatch(label)
	if m == nil {
		if keyword {
			return episodeClass{IsPack: true}, true
		}
		return episodeClass{}, false
	}

	season, serr := strconv.Atoi(m[1])
	episode, eerr := strconv.Atoi(m[2])
	if serr != nil || eerr != nil {
		if keyword {
			return episodeClass{IsPack: true}, true
		}
		return episodeClass{}, false
	}

	rest := label[len(m[0]):]
	if keyword || hasSecondToken(rest) || hasNumericRange(rest) {
		return episodeClass{IsPack: true, Season: &season}, true
	}

	return episodeClass{Season: &season, Episode: &episode}, true
}

func containsPackKeyword(lowered string) bool {
	for _, kw := range packKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// hasSecondToken reports whether the remainder after the leading SxE
// token contains another one, as in "4x01 al 4x10".
func hasSecondToken(rest string) bool {
	return reAnyToken.MatchString(rest)
}

// hasNumericRange reports whether the remainder spans a range of
// episode numbers joined by a dash.
func hasNumericRange(rest string) bool {
	return reNumericRange.MatchString(rest)
}
