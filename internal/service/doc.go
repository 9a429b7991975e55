// Package service contains the application-level use cases. PasswordService
// turns hashing requests into pool tasks, validates input before it crosses
// into a worker and translates task results back into Go values and errors.
//
// The service depends on the pool only through the TaskSubmitter interface,
// so the API layer and tests can substitute their own implementation.
package service
