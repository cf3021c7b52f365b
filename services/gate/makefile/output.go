// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package makefile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/AleutianAI/cppgate/pkg/ux"
)

const (
	MsgCommentedOut = "Please do not comment out cpp files in the makefile"
	MsgMissing      = "These .cpp files exist on disk but are missing in the Makefile:"
	MsgExtra        = "These .cpp files are listed in the Makefile but do not exist on disk:"
	MsgClean        = "makefile-checker found no issues"
)

// WriteText prints r. Extra entries are printed as a warning even on a
// passing run.
func WriteText(w io.Writer, r Result, pal ux.Palette) error {
	bw := bufio.NewWriter(w)

	if len(r.CommentedOut) > 0 {
		fmt.Fprintf(bw, "%s %s\n", pal.Icon(ux.IconError), pal.Error(MsgCommentedOut))
		for _, line := range r.CommentedOut {
			fmt.Fprintf(bw, "\t%s\n", pal.Muted(fmt.Sprintf("line %d", line)))
		}
	}
	if len(r.Missing) > 0 {
		fmt.Fprintf(bw, "%s %s\n", pal.Icon(ux.IconError), pal.Error(MsgMissing))
		for _, name := range r.Missing {
			fmt.Fprintf(bw, "\t%s\n", pal.Path(name))
		}
	}
	if len(r.Extra) > 0 {
		fmt.Fprintf(bw, "%s %s\n", pal.Icon(ux.IconWarning), pal.Warning(MsgExtra))
		for _, name := range r.Extra {
			fmt.Fprintf(bw, "\t%s\n", pal.Path(name))
		}
	}
	if !r.Failed() {
		fmt.Fprintf(bw, "%s %s\n", pal.Icon(ux.IconSuccess), pal.Success(MsgClean))
	}
	return bw.Flush()
}
