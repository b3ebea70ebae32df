package formatter

import (
	"fmt"
	"strconv"
	"strings"
)

// splitState tracks the intermediate-split session across a stream of
// vendor-timing messages, per §4.3. It is owned by a single Formatter and
// is not safe for concurrent use.
type splitState struct {
	observedEventTypeChar bool
	lastBoardID           byte // 0 means "last record had no board ID"
	nextSplitID            int
}

// advance applies one incoming record to the split-counter state machine
// and returns the resolved nextSplitID together with whether this record
// should be dropped as a duplicate of an already-handled richer copy.
func (s *splitState) advance(rec vendorRecord) (nextSplitID int, drop bool) {
	hasBoardID := rec.boardID != 0

	if !s.observedEventTypeChar {
		if !hasBoardID && rec.eventType != 0 && rec.eventType != ' ' {
			s.observedEventTypeChar = true
		}
	} else if hasBoardID && rec.boardID == s.lastBoardID {
		s.observedEventTypeChar = false
	}

	if hasBoardID {
		s.lastBoardID = rec.boardID
	} else {
		s.lastBoardID = 0
	}

	if s.observedEventTypeChar {
		switch {
		case !hasBoardID && rec.eventType == 'A':
			s.nextSplitID = 1
		case !hasBoardID && rec.eventType == 'B':
			s.nextSplitID++
		case !hasBoardID && rec.eventType != ' ':
			s.nextSplitID = 1
		}
	}

	if hasBoardID && s.observedEventTypeChar {
		return s.nextSplitID, true
	}
	return s.nextSplitID, false
}

// normalizeTime applies the time-string steps of the normalization in §4.3
// (strip "00:", strip a leading '0' before "M:", reformat bare seconds as
// "0:SS"). The bib leading-zero step is not applied; the bib is not
// rendered.
func normalizeTime(t string) string {
	if strings.HasPrefix(t, "00:") {
		if idx := strings.IndexByte(t[3:], ':'); idx >= 0 {
			t = t[3:]
		}
	}
	if len(t) > 2 && t[0] == '0' && t[2] == ':' {
		t = t[1:]
	}
	if !strings.ContainsRune(t, ':') && hasDigit(t) {
		if dot := strings.IndexByte(t, '.'); dot >= 0 {
			secs, err := strconv.Atoi(t[:dot])
			if err == nil {
				t = fmt.Sprintf("0:%02d%s", secs, t[dot:])
			}
		} else {
			secs, err := strconv.Atoi(t)
			if err == nil {
				t = fmt.Sprintf("0:%02d", secs)
			}
		}
	}
	return t
}

func hasDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}
