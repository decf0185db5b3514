// Package loader drives the Neptune bulk loader: it starts load jobs from
// Amazon S3, reports their status and waits for them to finish.
package loader

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/matzehuels/neptune-utils/pkg/config"
	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// Formats accepted by the loader.
const (
	FormatCSV        = "csv"
	FormatOpenCypher = "opencypher"
	FormatNTriples   = "ntriples"
	FormatNQuads     = "nquads"
	FormatRDFXML     = "rdfxml"
	FormatTurtle     = "turtle"
)

// Load modes.
const (
	ModeNew    = "NEW"
	ModeResume = "RESUME"
	ModeAuto   = "AUTO"
)

// Parallelism levels.
const (
	ParallelismLow           = "LOW"
	ParallelismMedium        = "MEDIUM"
	ParallelismHigh          = "HIGH"
	ParallelismOversubscribe = "OVERSUBSCRIBE"
)

var (
	formats     = []string{FormatCSV, FormatOpenCypher, FormatNTriples, FormatNQuads, FormatRDFXML, FormatTurtle}
	modes       = []string{ModeNew, ModeResume, ModeAuto}
	parallelism = []string{ParallelismLow, ParallelismMedium, ParallelismHigh, ParallelismOversubscribe}
)

// Request is a bulk load request. Empty optional fields are omitted and
// take the loader's defaults.
type Request struct {
	Source      string
	Format      string
	IAMRoleARN  string
	Region      string
	Mode        string
	FailOnError bool
	Parallelism string

	UpdateSingleCardinalityProperties bool
	QueueRequest                      bool
	Dependencies                      []string
	ParserConfiguration               map[string]string
	// UserProvidedEdgeIDs applies to openCypher loads only.
	UserProvidedEdgeIDs *bool
}

// NewRequest returns a request for source with defaults taken from the
// loader configuration.
func NewRequest(source, region string, cfg config.Loader) Request {
	return Request{
		Source:      source,
		Format:      cfg.Format,
		IAMRoleARN:  cfg.IAMRoleARN,
		Region:      region,
		FailOnError: cfg.FailOnError,
		Parallelism: cfg.Parallelism,
	}
}

// Validate checks the request before it is sent.
func (r *Request) Validate() error {
	if err := errors.ValidateS3URI(r.Source); err != nil {
		return err
	}
	if r.Format == "" {
		return errors.New(errors.ErrCodeInvalidLoadRequest, "format is required")
	}
	if !oneOf(strings.ToLower(r.Format), formats) {
		return errors.New(errors.ErrCodeInvalidLoadRequest, "unknown format %q (want one of %s)", r.Format, strings.Join(formats, ", "))
	}
	if err := errors.ValidateRoleARN(r.IAMRoleARN); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidLoadRequest, err, "iam role")
	}
	if err := errors.ValidateRegion(r.Region); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidLoadRequest, err, "region")
	}
	if r.Mode != "" && !oneOf(strings.ToUpper(r.Mode), modes) {
		return errors.New(errors.ErrCodeInvalidLoadRequest, "unknown mode %q (want one of %s)", r.Mode, strings.Join(modes, ", "))
	}
	if r.Parallelism != "" && !oneOf(strings.ToUpper(r.Parallelism), parallelism) {
		return errors.New(errors.ErrCodeInvalidLoadRequest, "unknown parallelism %q (want one of %s)", r.Parallelism, strings.Join(parallelism, ", "))
	}
	for _, id := range r.Dependencies {
		if err := errors.ValidateLoadID(id); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// flag is a loader boolean, written as "TRUE" or "FALSE".
type flag bool

func (f flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"TRUE"`), nil
	}
	return []byte(`"FALSE"`), nil
}

func (f *flag) UnmarshalJSON(b []byte) error {
	switch strings.ToUpper(strings.Trim(string(b), `"`)) {
	case "TRUE":
		*f = true
	case "FALSE", "NULL", "":
		*f = false
	default:
		return errors.New(errors.ErrCodeInvalidLoadRequest, "invalid boolean %s", b)
	}
	return nil
}

type wireRequest struct {
	Source                            string            `json:"source"`
	Format                            string            `json:"format"`
	IAMRoleARN                        string            `json:"iamRoleArn"`
	Region                            string            `json:"region"`
	Mode                              string            `json:"mode,omitempty"`
	FailOnError                       flag              `json:"failOnError"`
	Parallelism                       string            `json:"parallelism,omitempty"`
	UpdateSingleCardinalityProperties flag              `json:"updateSingleCardinalityProperties"`
	QueueRequest                      flag              `json:"queueRequest"`
	Dependencies                      []string          `json:"dependencies,omitempty"`
	ParserConfiguration               map[string]string `json:"parserConfiguration,omitempty"`
	UserProvidedEdgeIDs               *flag             `json:"userProvidedEdgeIds,omitempty"`
}

// MarshalJSON writes the request body the loader expects.
func (r Request) MarshalJSON() ([]byte, error) {
	w := wireRequest{
		Source:                            r.Source,
		Format:                            strings.ToLower(r.Format),
		IAMRoleARN:                        r.IAMRoleARN,
		Region:                            r.Region,
		Mode:                              strings.ToUpper(r.Mode),
		FailOnError:                       flag(r.FailOnError),
		Parallelism:                       strings.ToUpper(r.Parallelism),
		UpdateSingleCardinalityProperties: flag(r.UpdateSingleCardinalityProperties),
		QueueRequest:                      flag(r.QueueRequest),
		Dependencies:                      r.Dependencies,
		ParserConfiguration:               r.ParserConfiguration,
	}
	if r.UserProvidedEdgeIDs != nil {
		f := flag(*r.UserProvidedEdgeIDs)
		w.UserProvidedEdgeIDs = &f
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the loader request format, accepting booleans as
// "TRUE"/"FALSE" strings or JSON booleans.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Request{
		Source:                            w.Source,
		Format:                            w.Format,
		IAMRoleARN:                        w.IAMRoleARN,
		Region:                            w.Region,
		Mode:                              w.Mode,
		FailOnError:                       bool(w.FailOnError),
		Parallelism:                       w.Parallelism,
		UpdateSingleCardinalityProperties: bool(w.UpdateSingleCardinalityProperties),
		QueueRequest:                      bool(w.QueueRequest),
		Dependencies:                      w.Dependencies,
		ParserConfiguration:               w.ParserConfiguration,
	}
	if w.UserProvidedEdgeIDs != nil {
		b := bool(*w.UserProvidedEdgeIDs)
		r.UserProvidedEdgeIDs = &b
	}
	return nil
}
