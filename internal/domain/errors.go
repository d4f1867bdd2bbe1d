package domain

import "errors"

var (
	// ErrParse marks a malformed or undecodable notification payload.
	ErrParse = errors.New("malformed payload")
	// ErrNotFound marks a CRM lookup that resolved to no record.
	ErrNotFound = errors.New("crm record not found")
	// ErrAdapter marks a failed remote create/update/delete/link call.
	ErrAdapter = errors.New("crm call failed")
	// ErrStore marks a pending-package repository failure.
	ErrStore = errors.New("pending store unavailable")
	// ErrPackageFailed marks an invocation in which at least one package did
	// not replay to completion.
	ErrPackageFailed = errors.New("package execution failed")
)
