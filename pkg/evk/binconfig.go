package evk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Binary camera description container. Layout, all little-endian:
//
//	magic "EVKB", version u16, mode count u16
//	per mode:
//	  id u32
//	  name [64]byte NUL padded
//	  width u32, height u32, bit width u8, pixel format u16,
//	  i2c mode u8, i2c addr u16
//	  register count u32, then (addr u32, value u32, delay_ms u16) each
//	  control count u32, then per control: name and func as
//	  u16-length-prefixed UTF-8, min/max/step/default i64, reg u32
var binMagic = [4]byte{'E', 'V', 'K', 'B'}

const (
	binVersion    = 1
	binNameLen    = 64
	maxBinModes   = 256
	maxBinEntries = 65536
)

// ParseBinaryConfig decodes a binary camera description.
func ParseBinaryConfig(data []byte) (*ConfigFile, error) {
	r := &binReader{data: data}
	var magic [4]byte
	r.read(magic[:])
	if r.err == nil && magic != binMagic {
		return nil, opErr("parse bin config", CodeConfigFormatError)
	}
	version := r.u16()
	if r.err == nil && version != binVersion {
		return nil, wrapErr("parse bin config", CodeConfigFormatError,
			fmt.Errorf("unsupported version %d", version))
	}
	count := int(r.u16())
	if r.err == nil && (count == 0 || count > maxBinModes) {
		return nil, wrapErr("parse bin config", CodeConfigFormatError,
			fmt.Errorf("mode count %d out of range", count))
	}

	file := &ConfigFile{Binary: true}
	for i := 0; i < count && r.err == nil; i++ {
		mode, err := r.readMode()
		if err != nil {
			return nil, err
		}
		file.Modes = append(file.Modes, mode)
	}
	if r.err != nil {
		return nil, wrapErr("parse bin config", CodeConfigFormatError, r.err)
	}
	return file, nil
}

func (r *binReader) readMode() (Mode, error) {
	mode := Mode{ID: r.u32()}

	var name [binNameLen]byte
	r.read(name[:])
	mode.Config.Name = string(bytes.TrimRight(name[:], "\x00"))
	mode.Config.Width = r.u32()
	mode.Config.Height = r.u32()
	mode.Config.BitWidth = r.u8()
	mode.Config.Format = PixelFormat(r.u16())
	mode.Config.I2CMode = I2CMode(r.u8())
	mode.Config.I2CAddr = r.u16()
	if r.err == nil {
		if err := mode.Config.validate(); err != nil {
			return Mode{}, wrapErr("parse bin config", CodeConfigFormatError, err)
		}
	}

	regCount := int(r.u32())
	if r.err == nil && regCount > maxBinEntries {
		return Mode{}, wrapErr("parse bin config", CodeConfigFormatError,
			fmt.Errorf("register count %d out of range", regCount))
	}
	for i := 0; i < regCount && r.err == nil; i++ {
		op := RegOp{Addr: r.u32(), Value: r.u32()}
		op.Delay = time.Duration(r.u16()) * time.Millisecond
		mode.Registers = append(mode.Registers, op)
	}

	ctrlCount := int(r.u32())
	if r.err == nil && ctrlCount > maxBinEntries {
		return Mode{}, wrapErr("parse bin config", CodeControlFormatError,
			fmt.Errorf("control count %d out of range", ctrlCount))
	}
	for i := 0; i < ctrlCount && r.err == nil; i++ {
		ctrl := Control{
			Name:    r.string16(),
			Func:    r.string16(),
			Min:     r.i64(),
			Max:     r.i64(),
			Step:    r.i64(),
			Default: r.i64(),
			Reg:     r.u32(),
		}
		if r.err != nil {
			break
		}
		if err := ctrl.validate(); err != nil {
			return Mode{}, wrapErr("parse bin config", CodeControlFormatError, err)
		}
		mode.Controls = append(mode.Controls, ctrl)
	}
	return mode, nil
}

// MarshalBinaryConfig encodes modes into the binary container. It is
// the inverse of ParseBinaryConfig and backs the text-to-binary
// packing tool.
func MarshalBinaryConfig(modes []Mode) ([]byte, error) {
	if len(modes) == 0 {
		return nil, opErr("marshal bin config", CodeConfigFileEmpty)
	}
	if len(modes) > maxBinModes {
		return nil, wrapErr("marshal bin config", CodeConfigFormatError,
			fmt.Errorf("mode count %d out of range", len(modes)))
	}
	w := &bytes.Buffer{}
	w.Write(binMagic[:])
	writeU16(w, binVersion)
	writeU16(w, uint16(len(modes)))

	for _, mode := range modes {
		if err := mode.Config.validate(); err != nil {
			return nil, wrapErr("marshal bin config", CodeConfigFormatError, err)
		}
		if len(mode.Config.Name) >= binNameLen {
			return nil, wrapErr("marshal bin config", CodeConfigFormatError,
				fmt.Errorf("camera name %q too long", mode.Config.Name))
		}
		writeU32(w, mode.ID)
		var name [binNameLen]byte
		copy(name[:], mode.Config.Name)
		w.Write(name[:])
		writeU32(w, mode.Config.Width)
		writeU32(w, mode.Config.Height)
		w.WriteByte(mode.Config.BitWidth)
		writeU16(w, uint16(mode.Config.Format))
		w.WriteByte(uint8(mode.Config.I2CMode))
		writeU16(w, mode.Config.I2CAddr)

		writeU32(w, uint32(len(mode.Registers)))
		for _, op := range mode.Registers {
			writeU32(w, op.Addr)
			writeU32(w, op.Value)
			writeU16(w, uint16(op.Delay/time.Millisecond))
		}

		writeU32(w, uint32(len(mode.Controls)))
		for _, ctrl := range mode.Controls {
			if err := ctrl.validate(); err != nil {
				return nil, wrapErr("marshal bin config", CodeControlFormatError, err)
			}
			writeString16(w, ctrl.Name)
			writeString16(w, ctrl.Func)
			writeI64(w, ctrl.Min)
			writeI64(w, ctrl.Max)
			writeI64(w, ctrl.Step)
			writeI64(w, ctrl.Default)
			writeU32(w, ctrl.Reg)
		}
	}
	return w.Bytes(), nil
}

// binReader is a cursor over the binary layout that latches the first
// error so field reads can chain without per-call checks.
type binReader struct {
	data []byte
	off  int
	err  error
}

func (r *binReader) read(dst []byte) {
	if r.err != nil {
		return
	}
	if r.off+len(dst) > len(r.data) {
		r.err = fmt.Errorf("truncated at offset %d", r.off)
		return
	}
	copy(dst, r.data[r.off:])
	r.off += len(dst)
}

func (r *binReader) u8() uint8 {
	var b [1]byte
	r.read(b[:])
	return b[0]
}

func (r *binReader) u16() uint16 {
	var b [2]byte
	r.read(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (r *binReader) u32() uint32 {
	var b [4]byte
	r.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (r *binReader) i64() int64 {
	var b [8]byte
	r.read(b[:])
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (r *binReader) string16() string {
	n := int(r.u16())
	if r.err != nil {
		return ""
	}
	if n > maxBinEntries {
		r.err = fmt.Errorf("string length %d out of range at offset %d", n, r.off)
		return ""
	}
	b := make([]byte, n)
	r.read(b)
	if r.err != nil {
		return ""
	}
	return string(b)
}

func writeU16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeI64(w *bytes.Buffer, v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.Write(b[:])
}

func writeString16(w *bytes.Buffer, s string) {
	writeU16(w, uint16(len(s)))
	w.WriteString(s)
}
