package modbusvolt

import (
	"encoding/binary"
	"math"
)

// DataType defines the type of Modbus register for decoding
type DataType string

// Constants of DataType
const (
	u16 DataType = "u16"
	u32 DataType = "u32"
	i16 DataType = "i16"
	i32 DataType = "i32"
	f32 DataType = "f32"
	f64 DataType = "f64"
)

// Endian byte order of Modbus register for decoding
type Endian string

// Constants of Endian
const (
	littleEndian Endian = "little"
	bigEndian    Endian = "big"
)

// Function codes
const (
	readHoldingRegisters = 3
	readInputRegisters   = 4
)

// Register locates the voltage value on the device
type Register struct {
	Address      uint16
	DataType     DataType
	FunctionCode int
	Endianness   Endian
}

// decode converts register bytes into a float64
func decode(bytes []byte, register Register) float64 {
	var n float64
	endian := getByteOrder(register.Endianness)
	switch register.DataType {
	case u16:
		n = float64(endian.Uint16(bytes))
	case i16:
		n = float64(int16(endian.Uint16(bytes)))
	case u32:
		n = float64(endian.Uint32(bytes))
	case i32:
		n = float64(int32(endian.Uint32(bytes)))
	case f32:
		n = float64(math.Float32frombits(endian.Uint32(bytes)))
	case f64:
		n = math.Float64frombits(endian.Uint64(bytes))
	}
	return n
}

// getByteOrder returns the binary.ByteOrder for the register endianness
func getByteOrder(e Endian) binary.ByteOrder {
	if e == littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// sizeOf returns the number of u16 registers for the datatype, 0 if unknown
func sizeOf(t DataType) uint16 {
	switch t {
	case u16, i16:
		return 1
	case u32, i32, f32:
		return 2
	case f64:
		return 4
	}
	return 0
}
