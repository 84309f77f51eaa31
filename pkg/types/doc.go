// Package types defines the records, store interfaces, capability model and
// error taxonomy shared by every QA Desk component.
//
// Records (Project, TestCase, Bug, Task, Note, Comment, Notification) carry
// an embedded Meta block owned by the store. Entity methods modify the struct
// in memory only; callers persist through a Table inside a Store transaction.
package types
