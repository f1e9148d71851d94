package strip

import "github.com/TKasperczyk/decant/internal/transcript"

// Accounting fields with no conversational value.
var (
	innerMetadata = []string{"usage", "stop_reason", "stop_sequence"}
	outerMetadata = []string{"costUSD", "duration", "apiDuration"}
)

var metadataPaths = func() []string {
	paths := make([]string, 0, len(innerMetadata)+len(outerMetadata))
	for _, field := range innerMetadata {
		paths = append(paths, "message."+field)
	}
	return append(paths, outerMetadata...)
}()

// StripMetadata removes API accounting fields from every record.
func StripMetadata(entries []transcript.Entry) ([]transcript.Entry, int, error) {
	return mapRecords(entries, func(rec *transcript.Record) (*transcript.Record, error) {
		next, _, err := rec.Without(metadataPaths...)
		return next, err
	})
}
