// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package couchrest

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"gitlab.com/flimzy/testy"

	"github.com/magengit/couchrest/chttp"
	"github.com/magengit/couchrest/internal/fakecouch"
)

func TestNew(t *testing.T) {
	t.Run("no dsn", func(t *testing.T) {
		_, err := New("")
		testy.StatusError(t, "no URL specified", http.StatusBadRequest, err)
	})
	t.Run("bad dsn", func(t *testing.T) {
		_, err := New("http://foo.com/%xx")
		if KindOf(err) != KindBadRequest {
			t.Errorf("unexpected kind %s", KindOf(err))
		}
	})
	t.Run("user agent", func(t *testing.T) {
		var ua string
		c, _ := newCustomClient(t, func(req *http.Request) (*http.Response, error) {
			ua = req.Header.Get("User-Agent")
			return jsonResponse(http.StatusOK, `[]`), nil
		})
		if _, err := c.AllDBs(context.Background()); err != nil {
			t.Fatal(err)
		}
		if !strings.HasSuffix(ua, " couchrest/"+Version) {
			t.Errorf("unexpected User-Agent %q", ua)
		}
	})
	t.Run("extra user agent", func(t *testing.T) {
		c, err := New("http://example.com/", WithUserAgent("appguard/2.0"))
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"couchrest/" + Version, "appguard/2.0"}
		if d := testy.DiffInterface(want, c.UserAgents); d != nil {
			t.Error(d)
		}
	})
	t.Run("default logger", func(t *testing.T) {
		c, err := New("http://example.com/")
		if err != nil {
			t.Fatal(err)
		}
		if c.log == nil {
			t.Error("expected a default logger")
		}
	})
}

func TestPaths(t *testing.T) {
	tests := []struct {
		db, doc string
		want    string
	}{
		{"foo", "bar", "foo/bar"},
		{"a/b", "c", "a%2Fb/c"},
		{"foo", "a/b", "foo/a%2Fb"},
		{"foo", "_design/bar", "foo/_design/bar"},
		{"foo", "with space", "foo/with%20space"},
	}
	for _, tt := range tests {
		if got := docPath(tt.db, tt.doc); got != tt.want {
			t.Errorf("docPath(%q, %q): expected %q, got %q", tt.db, tt.doc, tt.want, got)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	s := fakecouch.New(fakecouch.WithBasicAuth("admin", "abc123"))
	s.AddDB("foo")
	srv := s.Start()
	t.Cleanup(srv.Close)

	newClient := func(t *testing.T) *Client {
		t.Helper()
		c, err := New(srv.URL, WithHTTPClient(&http.Client{}))
		if err != nil {
			t.Fatal(err)
		}
		return c
	}

	t.Run("anonymous", func(t *testing.T) {
		_, err := newClient(t).AllDBs(context.Background())
		if KindOf(err) != KindUnauthorized {
			t.Errorf("unexpected kind %s: %v", KindOf(err), err)
		}
	})
	t.Run("basic", func(t *testing.T) {
		c := newClient(t)
		if err := c.Authenticate(BasicAuth("admin", "abc123")); err != nil {
			t.Fatal(err)
		}
		dbs, err := c.AllDBs(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if d := testy.DiffInterface([]string{"foo"}, dbs); d != nil {
			t.Error(d)
		}
	})
	t.Run("twice", func(t *testing.T) {
		c := newClient(t)
		if err := c.Authenticate(BasicAuth("admin", "abc123")); err != nil {
			t.Fatal(err)
		}
		err := c.Authenticate(BasicAuth("admin", "abc123"))
		testy.Error(t, "auth already set", err)
	})
}

func TestAuthenticatorTypes(t *testing.T) {
	if _, ok := BasicAuth("a", "b").(*chttp.BasicAuth); !ok {
		t.Error("BasicAuth should return *chttp.BasicAuth")
	}
	if _, ok := CookieAuth("a", "b").(*chttp.CookieAuth); !ok {
		t.Error("CookieAuth should return *chttp.CookieAuth")
	}
	pa, ok := ProxyAuth("a", "s", []string{"r"}).(*chttp.ProxyAuth)
	if !ok {
		t.Fatal("ProxyAuth should return *chttp.ProxyAuth")
	}
	if pa.Username != "a" || pa.Secret != "s" {
		t.Errorf("unexpected proxy auth %+v", pa)
	}
}
