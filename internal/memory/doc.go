// Package memory keeps the server inside a container memory limit.
//
// [ConfigureLimit] derives GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
// when GOMEMLIMIT itself is not set:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// [Monitor] samples heap usage and applies backpressure to the directory
// scan: tag-reading workers call [Monitor.Wait] before opening each file
// and block while usage is above the pause mark.
package memory
