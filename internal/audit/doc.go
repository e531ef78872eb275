// Package audit runs the journal check: it logs in to the portal, loads the
// gradebook of every selected class, subject and term, evaluates the rules
// and writes the findings grouped by class or by teacher.
package audit
