package session

import (
	"reflect"

	"github.com/debemdeboas/postdeck/internal/blobcache"
	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/fxamacker/cbor/v2"
)

const recordVersion = 1

// record is the structured half of a persisted session. Binary content is
// referenced by blobRef and lives in the blob cache.
type record struct {
	Version  int              `cbor:"version"`
	Post     *model.DraftPost `cbor:"post"`
	Baseline []model.Asset    `cbor:"baseline"`
	Blobs    []blobRef        `cbor:"blobs"`
}

type blobRef struct {
	Asset       model.AssetID  `cbor:"asset"`
	Kind        blobcache.Kind `cbor:"kind"`
	Name        string         `cbor:"name,omitempty"`
	ContentType string         `cbor:"content_type,omitempty"`
	Hash        string         `cbor:"hash"`
}

func (r blobRef) key() string {
	return blobcache.Key(r.Kind, r.Asset)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// AssetStatus and RGB travel as their text form.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("session: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("session: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeRecord(r *record) ([]byte, error) {
	return encMode.Marshal(r)
}

func decodeRecord(data []byte) (*record, error) {
	var r record
	if err := decMode.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
