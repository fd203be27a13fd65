package repositories

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode encodes records with Core Deterministic Encoding so the same
// record always produces the same bytes on disk.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("repositories: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("repositories: CBOR decoder initialization failed: " + err.Error())
	}
}

func marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
