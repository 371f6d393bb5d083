package processor

import (
	"reflect"
	"strings"
	"testing"

	"newsflow/models"
)

func TestFormatMentionsStripped(t *testing.T) {
	e := FormatEvent(models.NewsEvent{Title: "update from @whale_alert today"})
	if e.Title != "update from whale_alert today" {
		t.Errorf("unexpected title: %q", e.Title)
	}
}

func TestFormatLinksWrapped(t *testing.T) {
	e := FormatEvent(models.NewsEvent{Title: "read https://news.example.com/story now"})
	want := `read [@click=open_link("https://news.example.com/story")]news.example.com/...[/] now`
	if e.Title != want {
		t.Errorf("unexpected title:\n got %q\nwant %q", e.Title, want)
	}
}

func TestFormatLinkFieldWrapped(t *testing.T) {
	e := FormatEvent(models.NewsEvent{Link: "https://example.com/x"})
	if !strings.HasPrefix(e.Link, `[@click=open_link("https://example.com/x")]`) {
		t.Errorf("link field not wrapped: %q", e.Link)
	}
}

func TestFormatStripsEnclosuresAndTrailer(t *testing.T) {
	e := FormatEvent(models.NewsEvent{Title: "see https://example.com/a]'garbage"})
	if !strings.Contains(e.Title, `open_link("https://example.com/a")`) {
		t.Errorf("url not cleaned: %q", e.Title)
	}
}

func TestFormatKeepsTrailingPunctuationInText(t *testing.T) {
	e := FormatEvent(models.NewsEvent{Title: "see (https://x.com/a) now!"})
	want := `see ([@click=open_link("https://x.com/a")]x.com/a[/]) now!`
	if e.Title != want {
		t.Errorf("unexpected title:\n got %q\nwant %q", e.Title, want)
	}

	e = FormatEvent(models.NewsEvent{Title: "big news https://x.com/b!!"})
	want = `big news [@click=open_link("https://x.com/b")]x.com/b[/]!!`
	if e.Title != want {
		t.Errorf("unexpected title:\n got %q\nwant %q", e.Title, want)
	}

	twice := FormatEvent(e)
	if !reflect.DeepEqual(e, twice) {
		t.Errorf("trailing punctuation handling not idempotent:\n once  %+v\n twice %+v", e, twice)
	}
}

func TestFormatCoinPrefixed(t *testing.T) {
	e := FormatEvent(models.NewsEvent{Coin: "BTC"})
	if e.Coin != "Coin: BTC" {
		t.Errorf("unexpected coin: %q", e.Coin)
	}
}

func TestFormatIdempotent(t *testing.T) {
	events := []models.NewsEvent{
		{Title: "plain text"},
		{Title: "with link https://example.com/a and @mention"},
		{Title: "www-style www.example.com/path here"},
		{Title: "x", Body: "body link https://b.example.com/q", Link: "https://c.example.com", Coin: "ETH"},
	}
	for _, ev := range events {
		once := FormatEvent(ev)
		twice := FormatEvent(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("formatting not idempotent:\n once  %+v\n twice %+v", once, twice)
		}
	}
}

func TestFormatNoNestedMarkers(t *testing.T) {
	e := FormatEvent(FormatEvent(models.NewsEvent{Title: "link https://example.com/a"}))
	if strings.Count(e.Title, "[@click=") != 1 {
		t.Errorf("marker wrapped twice: %q", e.Title)
	}
}
