// Package audit records who changed which chapter admin assignment or school
// statistic, and when.
//
// Destinations:
//
//   - DBLogger: chapter_admin_audit_log table in PostgreSQL, queryable with List
//   - SlogLogger: the structured application log
//   - MultiLogger: fan-out to several destinations
//
// Writes are issued in the background by the chapters engine; a failed audit
// write is logged and never fails the change it describes.
package audit
