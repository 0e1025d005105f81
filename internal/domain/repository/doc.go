// Package repository define los contratos de dominio del document store.
//
// Las interfaces son independientes del almacenamiento subyacente
// (memoria, PostgreSQL, Redis, NATS JetStream, Raft). Las implementaciones
// concretas viven en internal/store/adapters/.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│           Services / Controllers                    │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│   domain/repository (DocumentRepository, Cluster)   │
//	│   ApplyWrite / ApplyDelete  ──►  versioning gate    │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	   ┌──────────┬─────────┼──────────┬──────────┐
//	   ▼          ▼         ▼          ▼          ▼
//	 memory      pg       redis    jetstream     raft
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Los adapters llaman ApplyWrite/ApplyDelete dentro de su sección atómica
//   - Errores de dominio están en errors.go; conflictos en versioning
package repository
