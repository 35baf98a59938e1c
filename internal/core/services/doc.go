// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on the ports and domain packages; all I/O happens
// behind the driven interfaces.
package services
