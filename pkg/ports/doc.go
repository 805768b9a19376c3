/*
Package ports defines the driven ports (interfaces) of the workflow builder.

These interfaces decouple the application service from concrete storage and
coordination backends.

# Key Interfaces

  - WorkflowStore: Persists and loads Workflow aggregates.
  - DistributedLocker: Serializes read-modify-write edits of one workflow across replicas.
*/
package ports
