// Package bsqlite is a thin synchronous wrapper over an embedded SQLite binding, exposing the familiar prepare/all/get/run surface while hiding the binding's stricter resource rules: prepared statements are acquired fresh for every call and finalized before it returns (so no statement ever sits on the database file lock), named-parameter keys are rewritten to carry the placeholder prefix the binding expects, and the transaction and PRAGMA helpers the binding lacks are synthesized from begin/commit/rollback and plain queries.

package bsqlite
