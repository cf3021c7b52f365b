// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package e2e

import (
	"encoding/json"
	"fmt"
	"io"
)

// SummaryHeader precedes the JSON summary on stdout.
const SummaryHeader = "End-to-end testing summary:"

// WriteSummary prints the header line followed by s as indented JSON.
func WriteSummary(w io.Writer, s *Summary) error {
	if _, err := fmt.Fprintln(w, SummaryHeader); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
