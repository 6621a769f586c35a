// Package layout 把段落文本按像素宽度预算折行，并沿纵向游标逐行绘制。
//
// 折行宽度使用平均字宽近似：测量 52 个参考字母的总宽度得到平均字宽，
// 再用它把像素预算换算成字符列数（至少 MinColumns 列）。参考输出依赖这一近似。
package layout
