package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidUPC(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"036000291452", true},   // UPC-A
		{"036000291453", false},  // UPC-A, wrong check digit
		{"4006381333931", true},  // EAN-13
		{"4006381333932", false}, // EAN-13, wrong check digit
		{"96385074", true},       // EAN-8
		{"04252614", true},       // UPC-E
		{"04252615", false},
		{"0 36000 29145 2", true},
		{"12345", false},
		{"", false},
		{"ABCDEFGHIJKL", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidUPC(tt.code), "ValidUPC(%q)", tt.code)
	}
}

func TestExpandUPCE(t *testing.T) {
	tests := []struct {
		upce, upca string
	}{
		{"04252614", "042100005264"},
		{"01234505", "012000003455"},
		{"01234565", "012345000065"},
		{"01234531", "012300000451"},
		{"01234542", "012340000052"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.upca, expandUPCE(tt.upce), "expandUPCE(%q)", tt.upce)
	}
}
