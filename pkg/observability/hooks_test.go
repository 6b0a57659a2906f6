package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	d := NoopDeckHooks{}
	d.OnGenerateStart(ctx, 17)
	d.OnCodeFailure(ctx, 3, errors.New("encode failed"))
	d.OnGenerateComplete(ctx, 4, time.Second, nil)
	d.OnRenderStart(ctx, []string{"pdf"})
	d.OnRenderComplete(ctx, []string{"pdf"}, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "qr")
	c.OnCacheMiss(ctx, "deck")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/api/songs")
	h.OnResponse(ctx, "GET", "/api/songs", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Deck().(NoopDeckHooks); !ok {
		t.Error("Deck() should return NoopDeckHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customDeck := &testDeckHooks{}
	SetDeckHooks(customDeck)
	if Deck() != customDeck {
		t.Error("SetDeckHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Deck().(NoopDeckHooks); !ok {
		t.Error("Reset() should restore NoopDeckHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testDeckHooks{}
	SetDeckHooks(custom)
	SetDeckHooks(nil)

	if Deck() != custom {
		t.Error("SetDeckHooks(nil) should be ignored")
	}
}

type testDeckHooks struct{ NoopDeckHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
