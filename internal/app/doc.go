// Package app assembles the trading desk back office: storage, domain
// services, the notification hub and the HTTP surface.
//
// Layout:
//
//	domain/    plain structs and pure rules (operation state machine, roles)
//	storage/   Store interfaces plus the memory and postgres implementations
//	services/  one package per concern: operations, clients, users, auth
//	httpapi/   gorilla/mux router, request decoding, response envelope
//	system/    lifecycle manager for background components
//
// Services own all business rules and never touch HTTP types; handlers own
// all HTTP concerns and never touch SQL. Every mutation runs inside
// Store.InTx together with its audit record, so a rollback leaves no trail.
//
// Adding a new domain entity follows the same path each time: define the
// model under domain/, extend the Store interfaces and both implementations,
// add a service package with role checks and audit writes, then mount its
// handlers in httpapi.
package app
