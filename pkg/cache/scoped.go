package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one Redis instance without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// QRKey generates a prefixed key for a code image.
func (k *ScopedKeyer) QRKey(text string, opts QRKeyOpts) string {
	return k.prefix + k.inner.QRKey(text, opts)
}

// DeckKey generates a prefixed key for a generated deck.
func (k *ScopedKeyer) DeckKey(recordsHash, optionsHash string) string {
	return k.prefix + k.inner.DeckKey(recordsHash, optionsHash)
}

// ArtifactKey generates a prefixed key for a rendered file.
func (k *ScopedKeyer) ArtifactKey(deckKey string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(deckKey, opts)
}
