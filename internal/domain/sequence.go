package domain

import (
	"net/url"
	"slices"
	"strings"
)

// ImageLocator addresses one image within a sequence.
type ImageLocator struct {
	Index     int    `json:"index" yaml:"index"`
	Address   string `json:"address" yaml:"address"`
	Buster    string `json:"buster" yaml:"buster"`
	Cacheable bool   `json:"cacheable" yaml:"cacheable"`
}

// URL returns the address with the cache-buster appended as the "v" query parameter.
func (l ImageLocator) URL() string {
	if l.Buster == "" {
		return l.Address
	}
	sep := "?"
	if strings.Contains(l.Address, "?") {
		sep = "&"
	}
	return l.Address + sep + "v=" + url.QueryEscape(l.Buster)
}

// ImageSequence is an ordered, de-duplicated and immutable list of locators for
// one subject on one time slot. The zero value is a valid empty sequence.
type ImageSequence struct {
	locators  []ImageLocator
	noImagery bool
}

// NewSequence sorts locators ascending by index, drops negative indices and keeps
// the first locator of each duplicated index. The input slice is not retained.
func NewSequence(locators []ImageLocator) ImageSequence {
	out := make([]ImageLocator, 0, len(locators))
	for _, l := range locators {
		if l.Index >= 0 {
			out = append(out, l)
		}
	}
	slices.SortStableFunc(out, func(a, b ImageLocator) int { return a.Index - b.Index })
	out = slices.CompactFunc(out, func(a, b ImageLocator) bool { return a.Index == b.Index })
	return ImageSequence{locators: slices.Clip(out)}
}

// NoImageryMessage explains the empty sequence of an investigation area.
const NoImageryMessage = "no individual imagery expected for investigation areas"

// NoIndividualImagery returns the fixed empty sequence reported for investigation areas.
func NoIndividualImagery() ImageSequence {
	return ImageSequence{noImagery: true}
}

// Len returns the number of locators.
func (s ImageSequence) Len() int { return len(s.locators) }

// Empty reports whether the sequence has no locators.
func (s ImageSequence) Empty() bool { return len(s.locators) == 0 }

// NoImageryExpected reports whether this is the investigation-area marker sequence.
func (s ImageSequence) NoImageryExpected() bool { return s.noImagery }

// At returns the locator at position i and false when i is out of range.
func (s ImageSequence) At(i int) (ImageLocator, bool) {
	if i < 0 || i >= len(s.locators) {
		return ImageLocator{}, false
	}
	return s.locators[i], true
}

// Locators returns a copy of the locators in order.
func (s ImageSequence) Locators() []ImageLocator {
	return slices.Clone(s.locators)
}

// Indices returns the locator indices in order.
func (s ImageSequence) Indices() []int {
	out := make([]int, len(s.locators))
	for i, l := range s.locators {
		out[i] = l.Index
	}
	return out
}
