// Package textutil holds small string helpers shared by the pipeline and storage.
package textutil
