// Package clone defines core types shared across subsystems of the
// site-cloner pipeline: the job record and its lifecycle, the transient
// scrape and layout artifacts, and the interfaces each stage implements.
package clone
