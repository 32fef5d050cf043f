package mail

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/manogna-24/Email-processor/internal/model"
)

// NoSubjectPlaceholder is stored when a message has no Subject header.
const NoSubjectPlaceholder = "[No subject]"

// replacement substitutes byte sequences that cannot be decoded.
const replacement = "�"

// Result is the outcome of normalizing one message: either a record to
// persist or a reason the message was skipped, never both.
type Result struct {
	Record     *model.Record
	SkipReason string
}

// Skipped reports whether the message was skipped rather than
// normalized.
func (r Result) Skipped() bool { return r.Record == nil }

func skip(reason string) Result { return Result{SkipReason: reason} }

// Normalizer converts raw messages into canonical mail records.
type Normalizer struct {
	clock func() time.Time
	log   *zap.Logger
}

// NewNormalizer creates a Normalizer using the wall clock for
// fallback timestamps.
func NewNormalizer(log *zap.Logger) *Normalizer {
	return &Normalizer{clock: time.Now, log: log}
}

// Normalize extracts the canonical record from one raw RFC 822
// message. Malformed messages are logged and reported as skipped;
// no message ever fails the caller's sweep.
func (n *Normalizer) Normalize(raw []byte) Result {
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		n.log.Warn("malformed message, skipping", zap.Error(err))
		return skip("malformed message header")
	}
	if entity == nil {
		n.log.Warn("empty message, skipping")
		return skip("empty message")
	}

	header := gomail.Header{Header: entity.Header}

	timestamp := n.timestamp(header)

	return Result{Record: &model.Record{
		MessageID: n.messageID(header, timestamp),
		Sender:    n.sender(header),
		Subject:   n.subject(header),
		Timestamp: timestamp,
	}}
}

// subject decodes the Subject header. Encoded-word segments are
// decoded per their declared charsets and concatenated in header
// order; undecodable sequences are replaced rather than failing.
func (n *Normalizer) subject(header gomail.Header) string {
	rawSubject := header.Get("Subject")
	if rawSubject == "" {
		return NoSubjectPlaceholder
	}

	subject, err := header.Subject()
	if err != nil {
		n.log.Warn("decoding subject header", zap.Error(err))
	}
	if subject == "" {
		subject = rawSubject
	}

	return strings.ToValidUTF8(subject, replacement)
}

// sender returns the address portion of the From header, discarding
// the display name. Missing or unparsable senders yield an empty
// string, not a skip.
func (n *Normalizer) sender(header gomail.Header) string {
	addrs, err := header.AddressList("From")
	if err != nil {
		n.log.Warn("parsing From header", zap.Error(err))
		return ""
	}
	if len(addrs) == 0 {
		return ""
	}
	return strings.ToValidUTF8(addrs[0].Address, replacement)
}

// timestamp parses the Date header (timezone offset included),
// falling back to the processing instant.
func (n *Normalizer) timestamp(header gomail.Header) time.Time {
	date, err := header.Date()
	if err != nil || date.IsZero() {
		return n.clock()
	}
	return date
}

// messageID returns the Message-Id header verbatim, or generates the
// NO_ID_ fallback from the record's own timestamp.
func (n *Normalizer) messageID(
	header gomail.Header, timestamp time.Time,
) string {
	if id := header.Get("Message-Id"); id != "" {
		return id
	}
	epoch := float64(timestamp.UnixNano()) / float64(time.Second)
	return fmt.Sprintf("%s%.6f", model.NoMessageIDPrefix, epoch)
}
