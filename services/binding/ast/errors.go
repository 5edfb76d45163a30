// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"errors"
	"fmt"
)

// Sentinel errors for extraction preconditions.
var (
	// ErrFileTooLarge is returned when the binding source exceeds the
	// configured size limit.
	ErrFileTooLarge = errors.New("binding source exceeds size limit")

	// ErrInvalidContent is returned when the binding source is not valid UTF-8.
	ErrInvalidContent = errors.New("binding source is not valid UTF-8")
)

// ParseError reports malformed binding source. Extraction never returns a
// partial IR alongside a ParseError.
type ParseError struct {
	File string
	Line int
	Col  int
	Msg  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: ParseError: %s", e.File, e.Line, e.Col, e.Msg)
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
