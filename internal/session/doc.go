// Package session holds the selection state of one viewer: which subject and
// time slot are selected, the imagery fetched for them, and the carousel
// position within that imagery. A second, independent pipeline fetches the
// structured detail record on explicit request.
//
// Both pipelines hand out fetches tagged with a selection key carrying a
// generation number. A fetch may finish in any order; its result is applied
// only while its key is still the newest one, so a slow response for an
// earlier selection can never overwrite the state of a later one.
package session
