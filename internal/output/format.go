package output

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orgsynth/internal/dataset"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/parser"
)

var (
	// ids become file names under kb/.
	idPattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[a-z]{2,}$`)
	// encoding/json cannot write years past 9999.
	lastWritable = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// Format checks that every record can be written by a Manager. Records that
// cannot be encoded are errors; cosmetic problems are warnings.
type Format struct{}

// ValidateFormat implements validate.FormatValidator.
func (Format) ValidateFormat(ds *dataset.Dataset) []models.Issue {
	var out []models.Issue
	issue := func(sev models.Severity, rec models.Record, field string, err error) {
		out = append(out, models.Issue{
			Severity: sev,
			Kind:     models.KindFormat,
			Affected: rec.Ref(),
			Field:    field,
			Detail:   err.Error(),
		})
	}

	ds.All(func(rec models.Record) {
		if err := validation.Validate(rec.ID, validation.Required, validation.Match(idPattern)); err != nil {
			issue(models.SeverityError, rec, "id", fmt.Errorf("id %q: %w", rec.ID, err))
			return
		}
		if err := validation.Validate(rec.CreatedAt, validation.Required, validation.Max(lastWritable)); err != nil {
			issue(models.SeverityError, rec, "created_at", err)
			return
		}
		if _, err := json.Marshal(rec); err != nil {
			issue(models.SeverityError, rec, "payload", err)
			return
		}
		switch p := rec.Payload.(type) {
		case models.Person:
			if err := validation.Validate(p.Email, validation.Match(emailPattern)); err != nil {
				issue(models.SeverityWarning, rec, "email", fmt.Errorf("email %q: %w", p.Email, err))
			}
		case models.Document:
			if parser.Parse(p.Content).Frontmatter == nil {
				issue(models.SeverityWarning, rec, "content", fmt.Errorf("document has no frontmatter"))
			}
		}
	})
	return out
}
