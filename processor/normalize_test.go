package processor

import (
	"testing"
	"time"
)

func TestNormalizeSchemaUnionDirect(t *testing.T) {
	raw := []byte(`{"en":"Breaking headline","url":"https://example.com/a","type":"direct","time":1700000000000,"_id":7}`)

	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Title != "Breaking headline" {
		t.Errorf("unexpected title: %q", ev.Title)
	}
	if ev.Link != "https://example.com/a" {
		t.Errorf("unexpected link: %q", ev.Link)
	}
	if ev.Source != "tree-twitter" {
		t.Errorf("direct messages must be tagged tree-twitter, got %q", ev.Source)
	}
	if ev.ExternalID != 7 {
		t.Errorf("unexpected external id: %d", ev.ExternalID)
	}
	if !ev.OccurredAt.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("unexpected time: %v", ev.OccurredAt)
	}
}

func TestNormalizeSchemaUnionBlogs(t *testing.T) {
	raw := []byte(`{"title":"Headline: Detail","link":"https://blog.example.com","source":"Blogs","body":"old body","time":1700000000000}`)

	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Title != "Headline" {
		t.Errorf("unexpected title: %q", ev.Title)
	}
	if ev.Body != "Detail" {
		t.Errorf("blogs split must overwrite the body, got %q", ev.Body)
	}
	if ev.Source != "Blogs" {
		t.Errorf("unexpected source: %q", ev.Source)
	}
}

func TestNormalizePrefersFirstConvention(t *testing.T) {
	raw := []byte(`{"en":"english","title":"fallback","url":"https://a","link":"https://b","time":1}`)

	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Title != "english" {
		t.Errorf("en must win over title, got %q", ev.Title)
	}
	if ev.Link != "https://a" {
		t.Errorf("url must win over link, got %q", ev.Link)
	}
}

func TestNormalizeCoinFromLastAction(t *testing.T) {
	raw := []byte(`{"title":"x","time":1,"actions":[{"title":"ATOM/USDT"},{"title":"ATOM/BTC"}]}`)

	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Coin != "ATOM" {
		t.Errorf("coin must derive from the last action, got %q", ev.Coin)
	}
	if len(ev.Actions) != 2 {
		t.Errorf("actions must be preserved, got %v", ev.Actions)
	}
}

func TestNormalizeExplicitCoinWins(t *testing.T) {
	raw := []byte(`{"title":"x","coin":"ETH","time":1,"actions":[{"title":"ATOM/USDT"}]}`)

	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Coin != "ETH" {
		t.Errorf("explicit coin must not be overridden, got %q", ev.Coin)
	}
}

func TestNormalizeMissingTimeIsDropError(t *testing.T) {
	raw := []byte(`{"title":"no clock"}`)

	if _, err := Normalize(raw); err != ErrMissingTime {
		t.Fatalf("expected ErrMissingTime, got %v", err)
	}
}

func TestNormalizeInvalidJSON(t *testing.T) {
	if _, err := Normalize([]byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
}
