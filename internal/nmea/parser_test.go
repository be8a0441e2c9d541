package nmea

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	begins  int
	talker  string
	typ     string
	fields  []string
	indices []int
	ends    []bool
}

func (r *recorded) MessageBegin()              { r.begins++ }
func (r *recorded) Talker(t []byte)            { r.talker = string(t) }
func (r *recorded) Type(t []byte)              { r.typ = string(t) }
func (r *recorded) MessageEnd(checksumOK bool) { r.ends = append(r.ends, checksumOK) }
func (r *recorded) Field(f []byte, index int) {
	r.fields = append(r.fields, string(f))
	r.indices = append(r.indices, index)
}

func sentence(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, ck)
}

func feedAll(t *testing.T, p *Parser, s string) int {
	t.Helper()
	complete := 0
	for i := 0; i < len(s); i++ {
		done, err := p.Feed(s[i])
		require.NoError(t, err)
		if done {
			complete++
		}
	}
	return complete
}

func TestParser_GGA(t *testing.T) {
	var r recorded
	p := NewParser(&r)

	n := feedAll(t, p, "$GPGGA,172814.0,3723.46587704,N,12202.26957864,W,2,6,1.2,18.893,M,-25.669,M,2.0,0031*4F\r\n")
	require.Equal(t, 1, n)

	assert.Equal(t, 1, r.begins)
	assert.Equal(t, "GP", r.talker)
	assert.Equal(t, "GGA", r.typ)
	require.Len(t, r.fields, 14)
	assert.Equal(t, "172814.0", r.fields[0])
	assert.Equal(t, "3723.46587704", r.fields[1])
	assert.Equal(t, "0031", r.fields[13])
	for i, idx := range r.indices {
		assert.Equal(t, i, idx)
	}
	assert.Equal(t, []bool{true}, r.ends)
}

func TestParser_EmptyFieldsAreReported(t *testing.T) {
	var r recorded
	p := NewParser(&r)

	feedAll(t, p, "$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76\r\n")
	require.Len(t, r.fields, 14)
	assert.Equal(t, "", r.fields[12])
	assert.Equal(t, "", r.fields[13])
	assert.Equal(t, []bool{true}, r.ends)
}

func TestParser_ChecksumMismatch(t *testing.T) {
	good := sentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")
	star := strings.IndexByte(good, '*')

	for _, pos := range []int{star + 1, star + 2} {
		bad := []byte(good)
		if bad[pos] == '0' {
			bad[pos] = '1'
		} else {
			bad[pos] = '0'
		}
		var r recorded
		feedAll(t, NewParser(&r), string(bad))
		assert.Equal(t, []bool{false}, r.ends, "corrupted digit at %d", pos)
	}
}

func TestParser_MalformedChecksumDigits(t *testing.T) {
	cases := []struct {
		name string
		tail string
	}{
		{name: "NotHex", tail: "*G1\r\n"},
		{name: "OneDigit", tail: "*4\r\n"},
		{name: "ThreeDigits", tail: "*4F0\r\n"},
		{name: "Missing", tail: "*\r\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r recorded
			feedAll(t, NewParser(&r), "$GPTXT,01,01,02,hello"+tc.tail)
			assert.Equal(t, []bool{false}, r.ends)
		})
	}
}

func TestParser_IgnoresNoiseBetweenSentences(t *testing.T) {
	var r recorded
	p := NewParser(&r)

	stream := "garbage\r\n" + sentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K") + "xx" + sentence("GNRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	n := feedAll(t, p, stream)

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, r.begins)
	assert.Equal(t, "GN", r.talker)
	assert.Equal(t, "RMC", r.typ)
	assert.Equal(t, []bool{true, true}, r.ends)
}

func TestParser_ResumesAfterBadSentence(t *testing.T) {
	var r recorded
	p := NewParser(&r)

	feedAll(t, p, "$GPVTG,1,T*00\r\n")
	feedAll(t, p, sentence("GPVTG,1,T"))
	assert.Equal(t, []bool{false, true}, r.ends)
}

func TestParser_SentenceTooLong(t *testing.T) {
	var r recorded
	p := NewParser(&r)

	long := "$GPTXT," + strings.Repeat("A", 2*MaxSentence)
	var gotErr error
	for i := 0; i < len(long); i++ {
		if _, err := p.Feed(long[i]); err != nil {
			gotErr = err
			break
		}
	}
	require.ErrorIs(t, gotErr, ErrSentenceTooLong)
	assert.Empty(t, r.ends)

	// The parser is idle again and accepts the next sentence.
	n := feedAll(t, p, sentence("GPVTG,1,T"))
	assert.Equal(t, 1, n)
	assert.Equal(t, []bool{true}, r.ends)
}

func TestParser_OverflowOnDollarStartsNextSentence(t *testing.T) {
	var r recorded
	p := NewParser(&r)

	long := "$GPXXX," + strings.Repeat("A", MaxSentence)
	feedAll(t, p, long)

	next := "$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76\r\n"
	_, err := p.Feed(next[0])
	require.ErrorIs(t, err, ErrSentenceTooLong)
	assert.Equal(t, 2, r.begins)

	n := feedAll(t, p, next[1:])
	assert.Equal(t, 1, n)
	assert.Equal(t, []bool{true}, r.ends)
	assert.Equal(t, "GGA", r.typ)
}

func TestParser_WriteFeedsBytes(t *testing.T) {
	var r recorded
	p := NewParser(&r)

	s := sentence("GPVTG,054.7,T,034.4,M,005.5,N,010.2,K")
	n, err := p.Write([]byte(s))
	require.NoError(t, err)
	assert.Equal(t, len(s), n)
	assert.Equal(t, []bool{true}, r.ends)
	assert.Equal(t, []string{"054.7", "T", "034.4", "M", "005.5", "N", "010.2", "K"}, r.fields)
}
