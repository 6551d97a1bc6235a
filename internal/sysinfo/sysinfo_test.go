package sysinfo

import "testing"

func TestInterfaceExists(t *testing.T) {
	ifaces, err := Interfaces()
	if err != nil {
		t.Skipf("cannot list interfaces: %v", err)
	}
	if len(ifaces) == 0 {
		t.Skip("no interfaces on this host")
	}

	ok, err := InterfaceExists(ifaces[0].Name)
	if err != nil || !ok {
		t.Errorf("InterfaceExists(%q) = %v, %v; want true", ifaces[0].Name, ok, err)
	}

	ok, err = InterfaceExists("does-not-exist0")
	if err != nil || ok {
		t.Errorf("InterfaceExists(does-not-exist0) = %v, %v; want false", ok, err)
	}
}
