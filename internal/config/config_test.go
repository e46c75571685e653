package config

import "testing"

func TestDefaultsFillZeroValues(t *testing.T) {
	c := New("", "", 0, 0, 0, 0)
	if c.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", c.Addr, DefaultAddr)
	}
	if c.DataFile != DefaultDataFile {
		t.Errorf("DataFile = %q, want %q", c.DataFile, DefaultDataFile)
	}
	if c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", c.Capacity(), DefaultCapacity)
	}
	if c.FilterWidth() != DefaultFilterWidth {
		t.Errorf("FilterWidth = %d, want %d", c.FilterWidth(), DefaultFilterWidth)
	}
}

func TestSetCapacityHotUpdates(t *testing.T) {
	c := New("", "", 100, 0, 0, 0)
	c.SetCapacity(5)
	if c.Capacity() != 5 {
		t.Errorf("Capacity after SetCapacity = %d, want 5", c.Capacity())
	}
}
