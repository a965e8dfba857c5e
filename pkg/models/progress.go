// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import "fmt"

const (
	progressIndexUnit  = 100
	progressFinishFlag = 10000
)

// Progress packs one player's in-match progress into a single integer:
// score + questionIndex*100 + (finished ? 10000 : 0). Score and index must stay below 100.
type Progress int

// EncodeProgress packs the triple, rejecting values that would overlap another field.
func EncodeProgress(finished bool, questionIndex, score int) (Progress, error) {
	if score < 0 || score >= progressIndexUnit {
		return 0, fmt.Errorf("%w: score %d", ErrInvalidProgress, score)
	}
	if questionIndex < 0 || questionIndex >= progressIndexUnit {
		return 0, fmt.Errorf("%w: question index %d", ErrInvalidProgress, questionIndex)
	}
	raw := score + questionIndex*progressIndexUnit
	if finished {
		raw += progressFinishFlag
	}
	return Progress(raw), nil
}

// ParseProgress checks a stored raw value before it is decoded.
// Anything outside [0, 20000) cannot come from EncodeProgress.
func ParseProgress(raw int) (Progress, error) {
	if raw < 0 || raw >= 2*progressFinishFlag {
		return 0, fmt.Errorf("%w: raw value %d", ErrInvalidProgress, raw)
	}
	return Progress(raw), nil
}

// Decode unpacks the triple.
func (p Progress) Decode() (finished bool, questionIndex, score int) {
	raw := int(p)
	if raw >= progressFinishFlag {
		finished = true
		raw -= progressFinishFlag
	}
	return finished, raw / progressIndexUnit, raw % progressIndexUnit
}

func (p Progress) Finished() bool {
	finished, _, _ := p.Decode()
	return finished
}

func (p Progress) QuestionIndex() int {
	_, idx, _ := p.Decode()
	return idx
}

func (p Progress) Score() int {
	_, _, score := p.Decode()
	return score
}
