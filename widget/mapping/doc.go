// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapping translates records between the host's column names
// and the field names a widget declared for itself.
//
// A widget declares a [Spec] once, at handshake: the fields it needs,
// each required or optional. The host answers with a [ColumnMapping]
// assigning every field a host column, an ordered series of host
// columns, or nothing. The user can change the assignment at any time;
// the host flags such changes on the notification that follows.
//
// [MapRecord] and [MapRecords] perform the translation. They are pure
// and synchronous and run in either direction, so a record edited in
// widget terms can be translated back before it is written through the
// document API. The outcome distinguishes three cases:
//
//   - no Spec declared: the input is returned unchanged; mapping is
//     opt-in.
//   - Spec declared but no mapping resolved yet, or a required field
//     unassigned: the result is (nil, false). A partial mapping would
//     show misleading data, so callers treat this as "cannot render
//     yet".
//   - otherwise: a new record per input record, shape preserved.
//
// [Cache] holds the last mapping fetched from the host and coalesces
// concurrent refreshes into one round trip.
package mapping
