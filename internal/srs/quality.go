package srs

import (
	"fmt"
	"strconv"
	"strings"
)

// Quality is the learner's 0-5 self-assessment of a single recall.
type Quality int

const (
	// Complete blackout, unable to recall
	QualityBlackout Quality = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect Quality = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar Quality = 2
	// Correct response but required significant effort
	QualityCorrectDifficult Quality = 3
	// Correct response after some hesitation
	QualityCorrectHesitation Quality = 4
	// Perfect response with no hesitation
	QualityPerfect Quality = 5
)

// PassThreshold is the lowest quality that counts as a successful recall.
const PassThreshold = QualityCorrectDifficult

var qualityNames = [...]string{
	QualityBlackout:          "blackout",
	QualityIncorrect:         "incorrect",
	QualityIncorrectFamiliar: "familiar",
	QualityCorrectDifficult:  "difficult",
	QualityCorrectHesitation: "hesitation",
	QualityPerfect:           "perfect",
}

// Clamp normalizes q into [0, 5]. Out of range values are not an error.
func (q Quality) Clamp() Quality {
	if q < QualityBlackout {
		return QualityBlackout
	}
	if q > QualityPerfect {
		return QualityPerfect
	}
	return q
}

// Passed reports whether the (clamped) quality is a successful recall.
func (q Quality) Passed() bool {
	return q.Clamp() >= PassThreshold
}

func (q Quality) String() string {
	if q >= QualityBlackout && q <= QualityPerfect {
		return qualityNames[q]
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ParseQuality accepts either a number or one of the quality names.
// Numbers outside [0, 5] are clamped, unknown words are rejected.
func ParseQuality(s string) (Quality, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if n, err := strconv.Atoi(s); err == nil {
		return Quality(n).Clamp(), nil
	}
	for i, name := range qualityNames {
		if name == s {
			return Quality(i), nil
		}
	}
	return 0, fmt.Errorf("srs: unknown quality %q", s)
}
