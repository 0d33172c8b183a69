// Package services holds cross-cutting helpers shared by the outbound
// clients and the HTTP layer: the sentinel error taxonomy used for
// status-code mapping, and context annotations for correlation.
package services
