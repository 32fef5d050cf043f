package mail

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manogna-24/Email-processor/internal/model"
)

var fixedNow = time.Date(2025, 4, 1, 12, 0, 0, 123456000, time.UTC)

func newTestNormalizer() *Normalizer {
	return &Normalizer{
		clock: func() time.Time { return fixedNow },
		log:   zap.NewNop(),
	}
}

// rawMessage joins header lines into a minimal RFC 822 message.
func rawMessage(headers ...string) []byte {
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\nbody\r\n")
}

func TestNormalizeFullMessage(t *testing.T) {
	raw := rawMessage(
		"Message-Id: <abc123@example.com>",
		`From: "Alice Example" <alice@example.com>`,
		"Subject: Quarterly report",
		"Date: Tue, 01 Apr 2025 10:30:00 +0530",
	)

	result := newTestNormalizer().Normalize(raw)

	require.False(t, result.Skipped())
	require.NotNil(t, result.Record)
	assert.Empty(t, result.SkipReason)

	record := result.Record
	assert.Equal(t, "<abc123@example.com>", record.MessageID)
	assert.Equal(t, "alice@example.com", record.Sender)
	assert.Equal(t, "Quarterly report", record.Subject)

	want := time.Date(2025, 4, 1, 10, 30, 0, 0, time.FixedZone("", 5*3600+1800))
	assert.True(t, record.Timestamp.Equal(want))
}

func TestNormalizeDecodesSplitEncodedSubject(t *testing.T) {
	// Two encoded-word segments with different charsets, concatenated
	// in header order.
	raw := rawMessage(
		"Message-Id: <enc@example.com>",
		"From: bob@example.com",
		"Subject: =?UTF-8?Q?Hello_?= =?ISO-8859-1?Q?W=F6rld?=",
		"Date: Tue, 01 Apr 2025 10:30:00 +0000",
	)

	result := newTestNormalizer().Normalize(raw)

	require.False(t, result.Skipped())
	assert.Equal(t, "Hello Wörld", result.Record.Subject)
}

func TestNormalizeMissingSubject(t *testing.T) {
	raw := rawMessage(
		"Message-Id: <nosubj@example.com>",
		"From: bob@example.com",
		"Date: Tue, 01 Apr 2025 10:30:00 +0000",
	)

	result := newTestNormalizer().Normalize(raw)

	require.False(t, result.Skipped())
	assert.Equal(t, NoSubjectPlaceholder, result.Record.Subject)
}

func TestNormalizeGeneratesFallbackID(t *testing.T) {
	// No Message-Id and no Date: the id suffix must be derived from
	// the same fallback instant stored as the timestamp.
	raw := rawMessage(
		"From: bob@example.com",
		"Subject: hello",
	)

	result := newTestNormalizer().Normalize(raw)

	require.False(t, result.Skipped())
	record := result.Record

	assert.True(t, record.Timestamp.Equal(fixedNow))
	assert.True(t, strings.HasPrefix(record.MessageID, model.NoMessageIDPrefix))

	wantSuffix := fmt.Sprintf("%.6f", float64(fixedNow.UnixNano())/float64(time.Second))
	assert.Equal(t, model.NoMessageIDPrefix+wantSuffix, record.MessageID)
}

func TestNormalizeMissingDateFallsBackToClock(t *testing.T) {
	raw := rawMessage(
		"Message-Id: <nodate@example.com>",
		"From: bob@example.com",
		"Subject: hello",
	)

	result := newTestNormalizer().Normalize(raw)

	require.False(t, result.Skipped())
	assert.True(t, result.Record.Timestamp.Equal(fixedNow))
}

func TestNormalizeMissingSender(t *testing.T) {
	raw := rawMessage(
		"Message-Id: <nofrom@example.com>",
		"Subject: hello",
		"Date: Tue, 01 Apr 2025 10:30:00 +0000",
	)

	result := newTestNormalizer().Normalize(raw)

	require.False(t, result.Skipped())
	assert.Empty(t, result.Record.Sender)
}

func TestNormalizeSkipsUnreadableMessage(t *testing.T) {
	result := newTestNormalizer().Normalize(nil)

	assert.True(t, result.Skipped())
	assert.Nil(t, result.Record)
	assert.NotEmpty(t, result.SkipReason)
}
