// Package models defines domain entities and persistence interfaces for the runx workout transfer service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [ExportIndexEntry] : One row of the source service's export index
//   - [ActivityDescriptor] : Display name and activity type derived from an export filename
//   - [UploadRequest] / [UploadHandle] / [UploadStatus] : Destination upload lifecycle
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [TransferRun] : One harvest or upload invocation with completion status
//   - [Activity] : History of activities submitted to the destination service
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
