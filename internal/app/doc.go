// Package app composes the bridge layer services into a running
// application.
//
// # Architecture Role
//
// The app package sits above the domain and storage layers and wires them
// together. It is NOT a business logic layer; swap, registry, gateway and
// token rules live in internal/app/services/.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── bridge/         # Bridge configuration, fees, error taxonomy
//	│   ├── gateway/        # Gateway receipts and errors
//	│   ├── governance/     # Audit entries and roles
//	│   ├── ledger/         # Hour bucket arithmetic
//	│   ├── swap/           # Swap receipts
//	│   └── token/          # Canonical token errors
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # BridgeStore, UsageStore, SupplyStore, ...
//	│   ├── memory/         # In-memory implementation for tests
//	│   ├── postgres/       # PostgreSQL implementation for production
//	│   └── redisledger/    # Redis-backed hourly usage ledger
//	├── services/           # Business logic
//	│   ├── swap/           # The swap engine: clamps, fees, limits
//	│   ├── registry/       # Bridge governance
//	│   ├── token/          # Canonical supply and custody transfers
//	│   ├── gateway/        # Native gateway deposits and withdrawals
//	│   └── monitor/        # Gauge refresh and usage retention
//	├── treasury/           # Authority resolution (governor, guardian)
//	├── events/             # WebSocket event hub
//	├── httpapi/            # REST handlers and routing
//	├── system/             # Lifecycle manager
//	└── metrics/            # Prometheus collectors
//
// # Dependency Direction
//
//	cmd/bridgelayerd/
//	      │
//	      ▼
//	internal/app/runtime/ (config, server assembly)
//	      │
//	      ▼
//	internal/app/ (composition)
//	      │
//	      ├──► internal/app/services/ (business logic)
//	      ├──► internal/app/storage/ (persistence)
//	      └──► internal/app/treasury/ (authority)
//
// # Example: Adding a New Domain
//
// When adding a new domain (e.g., "settlements"):
//
//  1. Create domain models in internal/app/domain/settlements/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in internal/app/storage/postgres/ and memory/
//  4. Create the service in internal/app/services/settlements/
//  5. Wire it in internal/app/application.go
//  6. Add HTTP handlers in internal/app/httpapi/
package app
