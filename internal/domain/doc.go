// Package domain models the storm-imagery data served by the tropical storm
// monitoring backend and the client-side state built on top of it.
//
// # Subjects and Time Slots
//
// A subject is the thing being visualized: the general overview map, or one
// storm. Storm identity is its backend id ("otis", "invest-97L"); display
// name and danger category are descriptive only. Investigation areas are
// storms the backend tracks without individual imagery.
//
// A time slot pins a view either to the latest backend run or to a
// historical date. Dates are 8-digit YYYYMMDD keys, the same form the
// backend uses to match its run directories:
//
//	Latest            → GET /maps, GET /maps/{id}
//	Historic{20251001} → GET /date/20251001/maps/general/list, ...
//
// # Cache Busting
//
// Image locators carry a cache-buster appended as a "v" query parameter.
// Historic locators use the date key, so the same date always yields the
// same address and downstream caches may keep it. Latest locators use the
// retrieval time in milliseconds, strictly increasing per resolver, so a
// refreshed "latest" never shows a cached frame.
//
// # Selection Keys
//
// Every selection change produces a SelectionKey with a new generation
// number. A fetch result is only applied when its key is still current;
// results for retired keys are dropped. Comparing generations rather than
// (subject, slot) pairs means selecting A, then B, then A again still
// retires the first A fetch.
//
// # Failures
//
// Backend and transport problems are classified at the adapter boundary
// into [Failure] values of kind network, not_found or malformed. An empty
// but successful listing is not a failure: it yields an empty sequence.
package domain
