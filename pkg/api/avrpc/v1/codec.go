package avrpc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName 作为 gRPC content-subtype 使用: application/grpc+cbor
const CodecName = "cbor"

// 确定性编码：相同的消息得到相同的字节
var encOptions = cbor.EncOptions{
	Sort:          cbor.SortCanonical,
	ShortestFloat: cbor.ShortestFloatNone,
	Time:          cbor.TimeUnix,
	TimeTag:       cbor.EncTagNone,
	IndefLength:   cbor.IndefLengthForbidden,
	BigIntConvert: cbor.BigIntConvertShortest,
}

// 解码侧面对的是网络输入，限制容器大小和嵌套深度
var decOptions = cbor.DecOptions{
	MaxArrayElements: 10000,
	MaxMapPairs:      10000,
	MaxNestedLevels:  32,
	IndefLength:      cbor.IndefLengthForbidden,
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	BignumTag:        cbor.BignumTagForbidden,
	TimeTag:          cbor.DecTagIgnored,
}

var (
	em cbor.EncMode
	dm cbor.DecMode
)

func init() {
	var err error
	if em, err = encOptions.EncMode(); err != nil {
		panic(fmt.Sprintf("avrpc: invalid cbor encode options: %v", err))
	}
	if dm, err = decOptions.DecMode(); err != nil {
		panic(fmt.Sprintf("avrpc: invalid cbor decode options: %v", err))
	}
	encoding.RegisterCodec(Codec{})
}

// Codec 实现 encoding.Codec
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	data, err := em.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal %T: %w", v, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if err := dm.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return CodecName }
