// Package textutil turns remote titles into safe local file names.
package textutil
