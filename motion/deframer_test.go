package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeframerSyncAndSuppress(t *testing.T) {
	d := NewDeframer()
	lines := d.Feed([]byte("garbage Synced remainder|TAG|rest\r\n"))

	assert.Equal(t, Synced, d.State())
	assert.Equal(t, []string{"Synced", "remainderrest"}, lines)
}

func TestDeframerDesyncedReportsRaw(t *testing.T) {
	d := NewDeframer()

	assert.Equal(t, []string{"Desynced: boot"}, d.Feed([]byte("boot")))
	assert.Equal(t, []string{"Desynced: boot v1.2 Syn"}, d.Feed([]byte(" v1.2 Syn")))
	assert.Equal(t, Desynced, d.State())

	lines := d.Feed([]byte("ced"))
	assert.Equal(t, Synced, d.State())
	assert.Equal(t, []string{"Synced"}, lines)
}

func TestDeframerSyncedLinesAcrossChunks(t *testing.T) {
	d := NewDeframer()
	d.Feed([]byte("Synced"))

	assert.Empty(t, d.Feed([]byte("pos 12")))
	assert.Empty(t, d.Feed([]byte("8|ign")))
	assert.Empty(t, d.Feed([]byte("ored|\r")))
	assert.Equal(t, []string{"pos 128", "mem 1024"}, d.Feed([]byte("\nmem 1024\r\nfree")))
	assert.Equal(t, []string{"free"}, d.Feed([]byte("\r\n")))
}

func TestDeframerMultipleLinesInOneChunk(t *testing.T) {
	d := NewDeframer()
	lines := d.Feed([]byte("Synced\r\na\r\n\r\nb\r\n"))
	assert.Equal(t, []string{"Synced", "a", "b"}, lines)
}

func TestDeframerReset(t *testing.T) {
	d := NewDeframer()
	d.Feed([]byte("Synced|half"))
	d.Reset()

	assert.Equal(t, Desynced, d.State())
	assert.Equal(t, []string{"Synced", "x"}, d.Feed([]byte("Syncedx\r\n")))
}

func TestDeframerBoundsDesyncedText(t *testing.T) {
	d := NewDeframer()
	chunk := make([]byte, 3000)
	for i := range chunk {
		chunk[i] = 'a'
	}
	d.Feed(chunk)
	lines := d.Feed(chunk)
	assert.Len(t, lines, 1)
	assert.Len(t, lines[0], len("Desynced: ")+maxDesynced)
}

func TestDeframerKeepsCharacterSplitAcrossReads(t *testing.T) {
	d := NewDeframer()
	d.Feed([]byte("Synced"))

	data := []byte("temp 21°C\r\n")
	split := len("temp 21") + 1 // inside the two-byte '°'
	assert.Empty(t, d.Feed(data[:split]))
	assert.Equal(t, []string{"temp 21°C"}, d.Feed(data[split:]))
}

func TestDeframerDesyncedKeepsCharacterSplitAcrossReads(t *testing.T) {
	d := NewDeframer()
	data := []byte("µC Synced")
	d.Feed(data[:1])
	assert.Equal(t, []string{"Desynced: µC"}, d.Feed(data[1:3]))
}
