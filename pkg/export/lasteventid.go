package export

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/matzehuels/neptune-utils/pkg/endpoints"
	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/httputil"
)

// LastEventIDFile is written to the export root by [GetLastEventID].
const LastEventIDFile = "lastEventId.json"

// EventID is a position in a Neptune change stream.
type EventID struct {
	CommitNum int64 `json:"commitNum"`
	OpNum     int64 `json:"opNum"`
}

// LastEventIDStrategy records where the change stream stood when an
// export finished, so a consumer can replay changes made since.
type LastEventIDStrategy interface {
	SaveLastEventID(ctx context.Context, dirs Directories) error
	// WriteMessage tells the user where the event id was written.
	WriteMessage(w io.Writer)
}

// DoNotGetLastEventID skips the change stream.
type DoNotGetLastEventID struct{}

func (DoNotGetLastEventID) SaveLastEventID(context.Context, Directories) error { return nil }
func (DoNotGetLastEventID) WriteMessage(io.Writer)                             {}

// GetLastEventID reads the latest event from a stream endpoint and saves
// it to [LastEventIDFile]. Streams must be enabled on the cluster.
type GetLastEventID struct {
	HTTP     *httputil.Client
	Endpoint *endpoints.Endpoint

	path string
}

// NewGetLastEventID returns a strategy reading the stream of kind from eps.
func NewGetLastEventID(eps *endpoints.Endpoints, kind endpoints.StreamKind, hc *httputil.Client) *GetLastEventID {
	if hc == nil {
		hc = httputil.NewClient()
	}
	return &GetLastEventID{HTTP: hc, Endpoint: eps.Stream(kind)}
}

type streamResponse struct {
	LastEventID *EventID `json:"lastEventId"`
}

// LastEventID queries the stream for its latest event.
func (s *GetLastEventID) LastEventID(ctx context.Context) (EventID, error) {
	var resp streamResponse
	err := s.HTTP.Do(ctx, s.Endpoint, httputil.Request{
		Query: url.Values{"iteratorType": {"LATEST"}, "limit": {"1"}},
	}, &resp)
	if err != nil {
		return EventID{}, err
	}
	if resp.LastEventID == nil {
		return EventID{}, errors.New(errors.ErrCodeInvalidFormat, "stream response has no lastEventId")
	}
	return *resp.LastEventID, nil
}

func (s *GetLastEventID) SaveLastEventID(ctx context.Context, dirs Directories) error {
	id, err := s.LastEventID(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dirs.Root, LastEventIDFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	s.path = path
	return nil
}

func (s *GetLastEventID) WriteMessage(w io.Writer) {
	if s.path == "" {
		return
	}
	io.WriteString(w, "Last event id: "+s.path+"\n")
}

var (
	_ LastEventIDStrategy = DoNotGetLastEventID{}
	_ LastEventIDStrategy = (*GetLastEventID)(nil)
)
