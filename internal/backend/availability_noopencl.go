//go:build !opencl

package backend

func Has(name string) bool {
	return name == Sim
}
