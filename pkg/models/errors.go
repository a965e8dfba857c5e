// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package models

import (
	"errors"
	"strings"
)

// ActiveMatchConflictPattern is the message fragment stores use when the
// "one active match per participant" constraint rejects a new search.
const ActiveMatchConflictPattern = "already in an active match"

// ActiveMatchConflictMessage is shown to the user instead of a generic failure.
const ActiveMatchConflictMessage = "You are still registered in another battle. Please wait a moment and try again, or restart the app if this keeps happening."

var (
	ErrNotFound            = errors.New("record not found")
	ErrActiveMatchConflict = errors.New("participant is " + ActiveMatchConflictPattern)
	ErrInvalidProgress     = errors.New("invalid progress value")
	ErrMatchNotActive      = errors.New("match is not in progress")
	ErrInvalidGradeFilter  = errors.New("any-grade filter is only allowed for free matches")
)

var errorCodeMap = map[error]int{
	ErrNotFound:            510401,
	ErrActiveMatchConflict: 510402,
	ErrInvalidProgress:     510403,
	ErrMatchNotActive:      510404,
	ErrInvalidGradeFilter:  510405,
}

// IsActiveMatchConflict recognises the conflict either as the sentinel or by message content,
// since backends report the constraint violation as plain text.
func IsActiveMatchConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrActiveMatchConflict) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), ActiveMatchConflictPattern)
}

// ErrorCode returns a code for the error.
// It returns 20002 if the error is not registered in the map.
func ErrorCode(err error) int {
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return 20002
}
