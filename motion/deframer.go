package motion

import (
	"strings"
)

type SyncState int

const (
	Desynced SyncState = iota
	Synced
)

func (s SyncState) String() string {
	if s == Synced {
		return "Synced"
	}
	return "Desynced"
}

const (
	syncToken      = "Synced"
	lineEnd        = "\r\n"
	suppressToggle = '|'
	maxDesynced    = 4096
)

// Deframer turns the controller's byte stream into log lines. Until the
// controller answers the sync request with "Synced" everything received is
// reported raw. Afterwards '|' brackets suppressed regions and "\r\n" ends a
// line.
type Deframer struct {
	state      SyncState
	text       strings.Builder
	pending    string
	suppressed bool
}

func NewDeframer() *Deframer {
	return &Deframer{}
}

func (d *Deframer) State() SyncState { return d.state }

func (d *Deframer) Reset() {
	d.state = Desynced
	d.pending = ""
	d.text.Reset()
	d.suppressed = false
}

// Feed consumes data and returns the lines it completed.
func (d *Deframer) Feed(data []byte) []string {
	if d.state == Synced {
		return d.feedSynced(string(data))
	}

	d.pending += string(data)
	idx := strings.Index(d.pending, syncToken)
	if idx == -1 {
		if len(d.pending) > maxDesynced {
			d.pending = d.pending[len(d.pending)-maxDesynced:]
		}
		return []string{Desynced.String() + ": " + d.pending}
	}

	rest := d.pending[idx+len(syncToken):]
	d.pending = ""
	d.text.Reset()
	d.suppressed = false
	d.state = Synced
	return append([]string{Synced.String()}, d.feedSynced(rest)...)
}

func (d *Deframer) feedSynced(s string) []string {
	// Bytes, not runes: a multibyte character may be split across reads.
	for i := 0; i < len(s); i++ {
		if s[i] == suppressToggle {
			d.suppressed = !d.suppressed
			continue
		}
		if !d.suppressed {
			d.text.WriteByte(s[i])
		}
	}

	buf := d.text.String()
	var lines []string
	for {
		idx := strings.Index(buf, lineEnd)
		if idx == -1 {
			break
		}
		if line := strings.TrimSpace(buf[:idx]); line != "" {
			lines = append(lines, line)
		}
		buf = buf[idx+len(lineEnd):]
	}
	d.text.Reset()
	d.text.WriteString(buf)
	return lines
}
