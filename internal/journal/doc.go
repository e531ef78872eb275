// Package journal reads gradebook pages from the portal and normalizes them
// into lesson columns and student rows.
//
// Discovery walks the class selector, the subject selector of each class and
// the academic year heading. Load then fetches the editor pages of one
// class, subject and term. Columns dated after today are dropped and no page
// after them is requested. Any page whose structure cannot be read yields an
// UPSTREAM_FORMAT error.
package journal
