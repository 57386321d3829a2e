package session_test

import (
	"testing"

	"github.com/Abraxas-365/cidigate/pkg/session"
	"github.com/stretchr/testify/assert"
)

type mapRequest struct {
	cookies map[string]string
	headers map[string]string
	locals  map[string]string
	query   map[string]string
}

func (r mapRequest) Cookie(name string) string { return r.cookies[name] }
func (r mapRequest) Header(name string) string { return r.headers[name] }
func (r mapRequest) Local(key string) string   { return r.locals[key] }
func (r mapRequest) Query(name string) string  { return r.query[name] }

func TestExtractExternalCookieHash_Precedence(t *testing.T) {
	full := mapRequest{
		cookies: map[string]string{"CiDi": "from-cookie"},
		headers: map[string]string{"CiDi": "from-header", "X-CiDi-Token": "from-token-header"},
		locals:  map[string]string{"CiDi": "from-locals"},
		query:   map[string]string{"cidiToken": "from-query"},
	}

	cases := []struct {
		name string
		req  mapRequest
		want string
	}{
		{"cookie wins", full, "from-cookie"},
		{"header next", mapRequest{
			headers: full.headers, locals: full.locals, query: full.query,
		}, "from-header"},
		{"token header next", mapRequest{
			headers: map[string]string{"X-CiDi-Token": "from-token-header"}, locals: full.locals, query: full.query,
		}, "from-token-header"},
		{"locals next", mapRequest{locals: full.locals, query: full.query}, "from-locals"},
		{"query last", mapRequest{query: full.query}, "from-query"},
		{"blank values are skipped", mapRequest{
			cookies: map[string]string{"CiDi": "  "}, query: full.query,
		}, "from-query"},
		{"nothing", mapRequest{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, session.ExtractExternalCookieHash(tc.req))
		})
	}
}

func TestExtractExternalCookieHash_NilRequest(t *testing.T) {
	assert.Empty(t, session.ExtractExternalCookieHash(nil))
}
