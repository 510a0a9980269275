package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mbertsch/chatlab/internal/domain"
)

// ErrMalformedTimestamp is returned when a message has no valid sent time.
// The export fails loudly instead of silently emitting an epoch date.
var ErrMalformedTimestamp = errors.New("message has no valid sent timestamp")

const (
	sentAtLayout   = "02/01/2006 15:04"
	filenameLayout = "20060102_15.04"
)

// csvHeader is the fixed 9-column export header. Column order is part of the
// file format and must not change.
var csvHeader = []string{
	"Participant",
	"Participant ID",
	"Sender",
	"Sender ID",
	"Sent at",
	"Exchange",
	"Interaction",
	"Content",
	"Type",
}

// ConvertToCSV flattens interactions to CSV: one row per message, across all
// exchanges of all interactions, in exchange-list order then message order.
// Every field is wrapped in double quotes with literal newlines replaced by
// a single space. Embedded double quotes are not escaped; consumers of this
// format have always lived with that.
func ConvertToCSV(interactions []*domain.Interaction) (string, error) {
	rows := []string{joinRow(csvHeader)}

	for _, in := range interactions {
		if in == nil {
			continue
		}
		for _, exchange := range in.Exchanges.ExchangeList {
			for _, msg := range exchange.Messages {
				if msg.SentAt.IsZero() {
					return "", fmt.Errorf("message %s in exchange %q: %w", msg.ID, exchange.Name, ErrMalformedTimestamp)
				}
				rows = append(rows, joinRow([]string{
					in.Participant.Name,
					in.Participant.ID,
					msg.Sender.Name,
					msg.Sender.ID,
					msg.SentAt.Format(sentAtLayout),
					exchange.Name,
					in.Name,
					msg.Content,
					"string",
				}))
			}
		}
	}
	return strings.Join(rows, "\n"), nil
}

func joinRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = `"` + strings.ReplaceAll(field, "\n", " ") + `"`
	}
	return strings.Join(quoted, ",")
}

// BulkFilename names an export of every participant's interaction.
func BulkFilename(now time.Time) string {
	return fmt.Sprintf("chatbot_all_%s.csv", now.Format(filenameLayout))
}

// SingleFilename names an export of one interaction.
func SingleFilename(description string, now time.Time) string {
	return fmt.Sprintf("chatbot_%s_%s.csv", description, now.Format(filenameLayout))
}

// Sink receives a produced export file.
type Sink interface {
	Download(filename string, csv []byte) error
}

// Export converts the interactions and hands the file to the sink. An empty
// interaction list is a no-op: the sink is never invoked and no file exists.
func Export(sink Sink, interactions []*domain.Interaction, filename string) error {
	if len(interactions) == 0 {
		return nil
	}
	csv, err := ConvertToCSV(interactions)
	if err != nil {
		return err
	}
	return sink.Download(filename, []byte(csv))
}
