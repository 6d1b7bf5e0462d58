package convert

import (
	"time"

	"github.com/haierkeys/prompt-history/pkg/timex"

	"github.com/jinzhu/copier"
)

// timeConverters time.Time 与 timex.Time 互转
var timeConverters = []copier.TypeConverter{
	{
		SrcType: time.Time{},
		DstType: timex.Time{},
		Fn: func(src any) (any, error) {
			return timex.Time(src.(time.Time)), nil
		},
	},
	{
		SrcType: timex.Time{},
		DstType: time.Time{},
		Fn: func(src any) (any, error) {
			return time.Time(src.(timex.Time)), nil
		},
	},
}

// StructAssign 把 src 中与 dst 同名的字段复制到 dst，支持 time.Time / timex.Time 互转
func StructAssign(src any, dst any) error {
	return copier.CopyWithOption(dst, src, copier.Option{
		Converters: timeConverters,
	})
}
