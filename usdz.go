package scanmesh

import "fmt"

// SerializeUSDZ always fails. The format is declared so catalogs and
// option surfaces can name it ahead of a future packaging codec, and a
// declared-but-unwritable format must surface as an error rather than
// silently fall back to another serializer.
func SerializeUSDZ(m *Mesh, opts ExportOptions) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s serializer not implemented", ErrUnsupportedFormat, FORMAT_USDZ.DisplayName())
}
