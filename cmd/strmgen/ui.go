package main

import "github.com/John-Robertt/strmgen/internal/tui"

// 通过可替换的函数指针，让测试不启动真实终端界面。
var runTUI = tui.Run
