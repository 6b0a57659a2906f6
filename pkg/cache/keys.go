package cache

import "fmt"

// QRKeyOpts are the encoder settings that change a code image.
type QRKeyOpts struct {
	Level string `json:"level"`
	Size  int    `json:"size"`
}

// ArtifactKeyOpts identify one rendered output of a deck.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Page   int    `json:"page,omitempty"`
	DPI    int    `json:"dpi,omitempty"`
}

// Keyer generates cache keys.
type Keyer interface {
	// QRKey identifies the code image for a link.
	QRKey(text string, opts QRKeyOpts) string

	// DeckKey identifies a generated deck from a hash of its records and a
	// hash of the options that shaped it.
	DeckKey(recordsHash, optionsHash string) string

	// ArtifactKey identifies a rendered file of a deck.
	ArtifactKey(deckKey string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// QRKey implements Keyer.
func (DefaultKeyer) QRKey(text string, opts QRKeyOpts) string {
	return hashKey("qr", text, opts)
}

// DeckKey implements Keyer.
func (DefaultKeyer) DeckKey(recordsHash, optionsHash string) string {
	return fmt.Sprintf("deck:%s:%s", recordsHash, optionsHash)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(deckKey string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", deckKey, opts)
}

var _ Keyer = DefaultKeyer{}
