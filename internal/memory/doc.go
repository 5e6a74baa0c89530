// Package memory configures Go's soft memory limit for containerized
// deployments.
//
// GOMAXPROCS follows cgroup CPU limits automatically but GOMEMLIMIT does not.
// Without it a burst of thumbnail work can push the heap past the container
// limit before the collector reacts. [ConfigureFromEnv] derives the limit
// from MEMORY_LIMIT, typically injected through the Kubernetes Downward API:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// The heap gets MEMORY_RATIO of it (default 0.75); the remainder covers
// libvips buffers and SQLite pages, which live outside the Go heap. An
// explicit GOMEMLIMIT always wins and is only reported.
package memory
