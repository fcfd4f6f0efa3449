package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Valor Econômico</title>
  <item>
    <title>Porto Seguro lucra R$ 1 bi</title>
    <link>https://valor.example/porto</link>
    <description>&lt;p&gt;Resultado   do &lt;b&gt;trimestre&lt;/b&gt;&lt;/p&gt;</description>
    <pubDate>Wed, 05 Mar 2025 09:30:00 -0300</pubDate>
  </item>
  <item>
    <title>SulAmérica anuncia CEO</title>
    <link>https://valor.example/sulamerica</link>
  </item>
  <item>
    <title>   </title>
  </item>
</channel>
</rss>`

const atomDoc = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Sonho Seguro</title>
  <entry>
    <title>Mapfre amplia carteira</title>
    <link href="https://sonho.example/mapfre"/>
    <updated>2025-03-07T08:00:00Z</updated>
    <summary>Seguradora cresce no agro</summary>
  </entry>
</feed>`

func TestParse_RSS(t *testing.T) {
	articles, err := Parse(strings.NewReader(rssDoc), 0)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	a := articles[0]
	assert.Equal(t, "Porto Seguro lucra R$ 1 bi", a.Title)
	assert.Equal(t, "Resultado do trimestre", a.Description)
	assert.Equal(t, "Valor Econômico", a.SourceName)
	assert.Equal(t, "https://valor.example/porto", a.URL)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, time.Date(2025, 3, 5, 12, 30, 0, 0, time.UTC), *a.PublishedAt)

	assert.Nil(t, articles[1].PublishedAt)
}

func TestParse_AtomUsesUpdated(t *testing.T) {
	articles, err := Parse(strings.NewReader(atomDoc), 0)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Sonho Seguro", articles[0].SourceName)
	assert.Equal(t, "Seguradora cresce no agro", articles[0].Description)
	require.NotNil(t, articles[0].PublishedAt)
	assert.Equal(t, 7, articles[0].PublishedAt.Day())
}

func TestParse_MaxItems(t *testing.T) {
	articles, err := Parse(strings.NewReader(rssDoc), 1)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse(strings.NewReader("not a feed"), 0)
	assert.Error(t, err)
}

func TestFetchAll_SkipsFailingFeeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rss":
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(rssDoc))
		case "/atom":
			w.Header().Set("Content-Type", "application/atom+xml")
			_, _ = w.Write([]byte(atomDoc))
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	articles := FetchAll(context.Background(),
		[]string{srv.URL + "/rss", srv.URL + "/missing", srv.URL + "/atom"},
		Options{Client: srv.Client(), Concurrency: 2},
	)
	require.Len(t, articles, 3)
	assert.Equal(t, "Porto Seguro lucra R$ 1 bi", articles[0].Title)
	assert.Equal(t, "Mapfre amplia carteira", articles[2].Title)
}

func TestFetch_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL, Options{Client: srv.Client()})
	assert.Error(t, err)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a & b", cleanText("<i>a</i>   &amp;\n b"))
	assert.Equal(t, "", cleanText("  "))
}
