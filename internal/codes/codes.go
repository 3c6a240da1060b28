// Package codes translates the numeric enumeration values carried on parking
// and door records into the human readable labels stored locally.
package codes

import (
	"fmt"
	"strconv"
	"strings"
)

var vipTypes = map[int]string{
	0: "未定义",
	1: "临时车",
	2: "本地VIP",
	3: "第三方VIP",
	4: "黑名单",
	5: "访客",
	6: "预定车辆",
	7: "共享车位车辆",
}

var plateColors = map[int]string{
	0: "其他",
	1: "蓝色",
	2: "黄色",
	3: "白色",
	4: "黑色",
	5: "绿色",
}

var carTypes = map[int]string{
	0: "未定义",
	1: "小型车",
	2: "大型车",
	3: "摩托车",
	4: "电动车",
	5: "货车",
	6: "客车",
	7: "特种车辆",
}

var passTypes = map[int]string{
	0: "未确认",
	1: "自动放行",
	2: "确认放行",
	3: "异常放行",
}

var recordTypes = map[int]string{
	0: "未定义",
	1: "有牌车",
	2: "无牌车",
	3: "遮挡车",
	4: "非汽车",
	5: "误触发",
}

// BlacklistVIPType is the fixed-vehicle type code the parking lot uses to mark
// vehicles that must stop for inspection.
const BlacklistVIPType = 4

// translate resolves a numeric code string against a label table. Empty input
// and unmapped numbers fall back to def; non-numeric input is passed through
// unchanged so nothing upstream is lost.
func translate(table map[int]string, code, def string) string {
	if code == "" {
		return def
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return code
	}
	if label, ok := table[n]; ok {
		return label
	}
	return def
}

// VIPType returns the fixed-vehicle type label for a numeric code.
func VIPType(code string) string {
	return translate(vipTypes, code, "未定义")
}

// PlateColor returns the plate color label for a numeric code.
func PlateColor(code string) string {
	return translate(plateColors, code, "其他")
}

// CarType returns the vehicle type label for a numeric code.
func CarType(code string) string {
	return translate(carTypes, code, "未定义")
}

// PassType returns the release type label for a numeric code.
func PassType(code string) string {
	return translate(passTypes, code, "未确认")
}

// RecordType returns the capture record type label for a numeric code.
func RecordType(code string) string {
	return translate(recordTypes, code, "正常记录")
}

// Direction maps a door direction code to its label. 255 means the device
// reports no direction.
func Direction(code string) string {
	switch code {
	case "0":
		return "进门"
	case "1":
		return "出门"
	case "255":
		return "无"
	case "":
		return "未知"
	default:
		return fmt.Sprintf("未知(%s)", code)
	}
}

// RecStatus maps a door record status code to its label. Only status 1 counts
// as a valid passage; 2 marks alarm records.
func RecStatus(code string) string {
	switch code {
	case "0":
		return "无效"
	case "1":
		return "有效"
	case "2":
		return "报警"
	default:
		return "未知"
	}
}

// FormatParkingDuration renders a stay length in seconds as a compact
// hour/minute/second string, e.g. 3661 -> "1小时1分钟1秒".
func FormatParkingDuration(seconds int) string {
	if seconds <= 0 {
		return "0秒"
	}
	var b strings.Builder
	if h := seconds / 3600; h > 0 {
		fmt.Fprintf(&b, "%d小时", h)
	}
	if m := (seconds % 3600) / 60; m > 0 {
		fmt.Fprintf(&b, "%d分钟", m)
	}
	if s := seconds % 60; s > 0 {
		fmt.Fprintf(&b, "%d秒", s)
	}
	if b.Len() == 0 {
		return "0秒"
	}
	return b.String()
}

// PrefixImageURL prepends the capture image host to relative snapshot paths.
// Absolute URLs and empty values are returned as is.
func PrefixImageURL(base, imageURL string) string {
	if imageURL == "" {
		return ""
	}
	if strings.HasPrefix(imageURL, "http://") || strings.HasPrefix(imageURL, "https://") {
		return imageURL
	}
	return base + imageURL
}
